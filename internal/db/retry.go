package db

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a unit of database work eligible for retrying.
type Operation func() error

// IsDuplicateKeyError classifies errors worth retrying.
type IsDuplicateKeyError func(err error) bool

const DefaultMaxRetries = 3

// Try runs op, retrying unique index violations up to DefaultMaxRetries
// times. Used around inserts whose unique keys can collide transiently.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsMongoDuplicateKeyError)
}

// WithRetries runs op once plus up to maxRetries retries. Only errors
// matching isDuplicateKey are retried; anything else is final. Retries back
// off in 50ms increments.
func WithRetries(op Operation, maxRetries int, isDuplicateKey IsDuplicateKeyError) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !isDuplicateKey(err) || attempt == maxRetries {
			return err
		}
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
	}
	return err
}

// IsMongoDuplicateKeyError reports whether err is a unique index violation.
func IsMongoDuplicateKeyError(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}
