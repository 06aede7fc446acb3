package api

import "errors"

var errStoreRequired = errors.New("paper store is required")
