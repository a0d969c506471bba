package store

import "semsearch/internal/domain"

func unavailable(op string, err error) error {
	return domain.Wrap(domain.KindStoreUnavailable, op, err)
}

func writeFailed(op string, err error) error {
	return domain.Wrap(domain.KindStoreWrite, op, err)
}
