package capture

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/beacon/internal/event"
	"github.com/GriffinCanCode/beacon/internal/logging"
)

// Runtime observes errors and recovered panics on behalf of the host
// application and feeds them to the sink as error-category events.
type Runtime struct {
	sink   Sink
	ignore []*regexp.Regexp
	log    *logging.Logger
}

// NewRuntime creates a runtime observer. Error messages matching any of the
// ignore patterns are suppressed; invalid patterns are skipped with a warning.
func NewRuntime(sink Sink, ignorePatterns []string, log *logging.Logger) *Runtime {
	if log == nil {
		log = logging.NewNop()
	}
	return &Runtime{
		sink:   sink,
		ignore: compilePatterns(ignorePatterns, log),
		log:    log.Component("capture.runtime"),
	}
}

// CaptureError submits an error observation. Nil and ignored errors are
// discarded.
func (r *Runtime) CaptureError(err error) {
	if err == nil {
		return
	}
	message := err.Error()
	if r.ignored(message) {
		return
	}
	r.sink.Submit(event.CategoryError, map[string]any{
		"message": message,
		"fatal":   false,
	})
}

// CapturePanic submits a recovered panic with its stack. Intended for use in
// the host's recover handlers:
//
//	defer func() {
//	    if v := recover(); v != nil {
//	        observer.CapturePanic(v, debug.Stack())
//	        panic(v)
//	    }
//	}()
func (r *Runtime) CapturePanic(recovered any, stack []byte) {
	if recovered == nil {
		return
	}
	message := fmt.Sprint(recovered)
	if r.ignored(message) {
		return
	}
	r.sink.Submit(event.CategoryError, map[string]any{
		"message": message,
		"stack":   string(stack),
		"fatal":   true,
	})
}

func (r *Runtime) ignored(message string) bool {
	for _, p := range r.ignore {
		if p.MatchString(message) {
			return true
		}
	}
	return false
}

func compilePatterns(patterns []string, log *logging.Logger) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, raw := range patterns {
		p, err := regexp.Compile(raw)
		if err != nil {
			log.Warn("skipping invalid ignore pattern", zap.String("pattern", raw), zap.Error(err))
			continue
		}
		compiled = append(compiled, p)
	}
	return compiled
}
