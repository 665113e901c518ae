package kvstore

import (
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"
)

// GetJSON decodes the value under key into a T.
// Missing keys, read failures and corrupt JSON all yield def; the latter two are logged.
func GetJSON[T any](s Store, key string, def T) T {
	raw, err := s.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logrus.WithFields(logrus.Fields{"component": "kvstore", "key": key}).
				WithError(err).Warn("Failed to read key, using default")
		}
		return def
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		logrus.WithFields(logrus.Fields{"component": "kvstore", "key": key}).
			WithError(err).Warn("Corrupt value, using default")
		return def
	}
	return v
}

// SetJSON encodes v and stores it under key. Failures are logged and reported as false.
func SetJSON(s Store, key string, v any) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		logrus.WithFields(logrus.Fields{"component": "kvstore", "key": key}).
			WithError(err).Warn("Failed to encode value")
		return false
	}
	if err := s.Set(key, raw); err != nil {
		logrus.WithFields(logrus.Fields{"component": "kvstore", "key": key}).
			WithError(err).Warn("Failed to store value")
		return false
	}
	return true
}

// Delete removes key, logging any failure.
func Delete(s Store, key string) bool {
	if err := s.Remove(key); err != nil {
		logrus.WithFields(logrus.Fields{"component": "kvstore", "key": key}).
			WithError(err).Warn("Failed to remove value")
		return false
	}
	return true
}

// Has reports whether key is present.
func Has(s Store, key string) bool {
	_, err := s.Get(key)
	return err == nil
}
