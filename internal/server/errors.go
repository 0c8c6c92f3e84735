package server

import (
	"errors"

	"github.com/lib/pq"

	"github.com/paperdesk/paperdesk/internal/store"
)

func errAs(err error) (*pq.Error, bool) {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
