package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

var ErrorTenantRequired = errors.New("tenant id is required")

var ErrorInvalidPhone = errors.New("invalid phone number")
