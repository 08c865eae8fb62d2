package models

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const cursorTimeLayout = time.RFC3339Nano

// DecodeCompositeCursor splits a "created_at|id" cursor. An invalid cursor decodes to the zero value.
func DecodeCompositeCursor(cursor *string) (time.Time, int) {
	if cursor == nil || *cursor == "" {
		return time.Time{}, 0
	}
	decoded, err := base64.StdEncoding.DecodeString(*cursor)
	if err != nil {
		return time.Time{}, 0
	}
	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 {
		return time.Time{}, 0
	}
	at, err := time.Parse(cursorTimeLayout, parts[0])
	if err != nil {
		return time.Time{}, 0
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, 0
	}
	return at, id
}

func EncodeCompositeCursor(at time.Time, id int) string {
	cursor := fmt.Sprintf("%s|%d", at.UTC().Format(cursorTimeLayout), id)
	return base64.StdEncoding.EncodeToString([]byte(cursor))
}

// normalisePage returns (limit, offset) for page-number paging.
func normalisePage(page int, pageSize int) (int, int) {
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 50
	}
	if page <= 0 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}
