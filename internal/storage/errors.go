package storage

import memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"

func wrapStorageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return memerrors.Retryable(memerrors.New(memerrors.KindStorage, "storage."+op, err))
}
