package cluster

import (
	"errors"
	"fmt"
)

var ErrConfig = errors.New("invalid configuration")

//Stage names the part of a run that failed
type Stage string

const (
	StagePartitioning Stage = "partitioning"
	StageSeeding      Stage = "seeding"
	StageExchange     Stage = "exchange"
	StageGather       Stage = "gather"
)

//StageError is fatal for the whole run, the bands hold no valid generation after it
type StageError struct {
	Stage      Stage
	Rank       int //-1 when no rank is involved
	Generation int
	Err        error
}

func (e *StageError) Error() string {
	if e.Rank < 0 {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s failed on rank %d at generation %d: %v", e.Stage, e.Rank, e.Generation, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

//StageOf returns the failed stage of err, empty if err is not a StageError
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
