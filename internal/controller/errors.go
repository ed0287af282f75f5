package controller

import "errors"

var errUnknownTarget = errors.New("unknown target type")
