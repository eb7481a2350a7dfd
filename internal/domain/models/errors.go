package models

import (
	"errors"
	"fmt"
	"strings"
)

// DataRetrievalError means the price provider could not deliver data.
type DataRetrievalError struct {
	Op      string
	Symbols []string
	Err     error
}

func (e *DataRetrievalError) Error() string {
	return fmt.Sprintf("%s: retrieve %s: %v", e.Op, strings.Join(e.Symbols, ","), e.Err)
}

func (e *DataRetrievalError) Unwrap() error { return e.Err }

// InsufficientDataError means the data is too short or malformed for the computation.
type InsufficientDataError struct {
	Op     string
	Have   int
	Need   int
	Detail string
}

func (e *InsufficientDataError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: insufficient data: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("%s: insufficient data: have %d, need %d", e.Op, e.Have, e.Need)
}

// NumericalComputationError means a statistic could not be computed for one window.
type NumericalComputationError struct {
	Op  string
	Err error
}

func (e *NumericalComputationError) Error() string {
	return fmt.Sprintf("%s: numerical failure: %v", e.Op, e.Err)
}

func (e *NumericalComputationError) Unwrap() error { return e.Err }

func IsDataRetrieval(err error) bool {
	var e *DataRetrievalError
	return errors.As(err, &e)
}

func IsInsufficientData(err error) bool {
	var e *InsufficientDataError
	return errors.As(err, &e)
}

func IsNumerical(err error) bool {
	var e *NumericalComputationError
	return errors.As(err, &e)
}
