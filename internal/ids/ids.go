// Package ids mints sortable identifiers for archived objects.
package ids

import (
	"time"

	"github.com/segmentio/ksuid"
)

func New() string {
	return ksuid.New().String()
}

// At returns an id whose sort position is t.
func At(t time.Time) (string, error) {
	id, err := ksuid.NewRandomWithTime(t)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Time extracts the timestamp embedded in id.
func Time(id string) (time.Time, error) {
	parsed, err := ksuid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.Time(), nil
}
