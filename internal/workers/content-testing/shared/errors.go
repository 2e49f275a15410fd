// internal/workers/content-testing/shared/errors.go
package shared

import (
	"context"
	"database/sql/driver"
	stderrors "errors"

	"content-testing-workers/internal/common/errors"
	"content-testing-workers/internal/contenttest"
	"content-testing-workers/internal/grading"
	"content-testing-workers/internal/history"
	"content-testing-workers/internal/problem"
	"content-testing-workers/internal/video"

	"github.com/lib/pq"
)

var ErrInvalidInput = stderrors.New("INVALID_INPUT")

// Classify maps an error returned by the content testing packages to the
// shared error model. The original message is kept in Details.
func Classify(err error) *errors.StandardError {
	if err == nil {
		return nil
	}
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	var out *errors.StandardError
	var pqErr *pq.Error
	switch {
	case stderrors.Is(err, ErrInvalidInput):
		out = errors.NewInvalidInputError("")
	case stderrors.Is(err, contenttest.ErrTestCaseNotFound):
		out = errors.NewTestCaseNotFoundError("")
	case stderrors.Is(err, contenttest.ErrInvalidExpectation):
		out = errors.NewInvalidExpectationError("")
	case stderrors.Is(err, problem.ErrProblemNotFound):
		out = errors.NewProblemNotFoundError("")
	case stderrors.Is(err, problem.ErrInvalidXML):
		out = errors.NewInvalidProblemXMLError("", err)
	case stderrors.Is(err, grading.ErrGraderUnavailable):
		out = errors.NewGraderUnavailableError(err)
	case stderrors.Is(err, history.ErrIndexNotFound):
		out = errors.NewIndexNotFoundError("")
	case stderrors.Is(err, history.ErrSearchQueryFailed):
		out = errors.NewSearchQueryFailedError("", err)
	case stderrors.Is(err, video.ErrInvalidDescriptor):
		out = errors.NewVideoDescriptorInvalidError(err)
	case stderrors.Is(err, context.DeadlineExceeded):
		out = errors.NewQueryTimeoutError("job")
	case stderrors.Is(err, driver.ErrBadConn):
		out = errors.NewDatabaseConnectionFailedError(err)
	case stderrors.As(err, &pqErr):
		out = errors.NewQueryExecutionFailedError("", err)
		out.Metadata = map[string]interface{}{
			"sqlState":  string(pqErr.Code),
			"condition": pqErr.Code.Name(),
		}
	default:
		return errors.NewInternalError(err)
	}
	out.Details = err.Error()
	return out
}
