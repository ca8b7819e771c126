package common

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Contains checks if an item is in a slice. This function uses type parameters to work with any slice type.
func Contains[T comparable](slice []T, item T) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}

	return false
}

// MetadataLimitError reports that a metadata key or value exceeded the
// configured length limit.
type MetadataLimitError struct {
	Field string
	Limit int
}

func (e MetadataLimitError) Error() string {
	return fmt.Sprintf("metadata %s exceeds limit of %d", e.Field, e.Limit)
}

// CheckMetadataKeyAndValueLength checks the length of key and value against limit,
// for any metadata attached to an opportunity or execution result.
func CheckMetadataKeyAndValueLength(limit int, metadata map[string]any) error {
	for k, v := range metadata {
		if len(k) > limit {
			return MetadataLimitError{Field: "key", Limit: limit}
		}

		var value string

		switch t := v.(type) {
		case int:
			value = fmt.Sprintf("%d", t)
		case float64:
			value = fmt.Sprintf("%g", t)
		case string:
			value = t
		case bool:
			value = fmt.Sprintf("%t", t)
		}

		if len(value) > limit {
			return MetadataLimitError{Field: "value", Limit: limit}
		}
	}

	return nil
}

// SafeIntToUint64 safe mode to converter int to uint64
func SafeIntToUint64(val int) uint64 {
	if val < 0 {
		return uint64(1)
	}

	return uint64(val)
}

// IsUUID Validate if the string pass through is an uuid
func IsUUID(s string) bool {
	r := regexp.MustCompile("^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[1-5][a-fA-F0-9]{3}-[89abAB][a-fA-F0-9]{3}-[a-fA-F0-9]{12}$")
	return r.MatchString(s)
}

// GenerateUUIDv7 generate a new uuid v7 using google/uuid package and return it.
func GenerateUUIDv7() uuid.UUID {
	u := uuid.Must(uuid.NewV7())

	return u
}

// StructToJSONString convert a struct to json string
func StructToJSONString(s any) (string, error) {
	jsonByte, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	return string(jsonByte), nil
}
