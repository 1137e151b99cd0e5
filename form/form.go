package form

import (
	"context"
	"sync"
	"time"

	"github.com/liamcoop/iris/classifier"
)

// Form holds the state of one predictor page: the raw inputs, the most
// recent result with the inputs that produced it, and the last notice.
// A Form is safe for concurrent use.
type Form struct {
	mu        sync.Mutex
	raw       RawMeasurement
	result    *classifier.Result
	echo      classifier.Measurement
	echoText  RawMeasurement
	notice    string
	busy      bool
	now       func() time.Time
	updatedAt time.Time
}

// Snapshot is a read-only copy of a Form's state
type Snapshot struct {
	Values RawMeasurement
	Result *classifier.Result
	// Echo is the measurement behind Result and EchoText the inputs as typed
	Echo     classifier.Measurement
	EchoText RawMeasurement
	Notice   string
	Busy     bool
}

// New creates an empty form
func New() *Form {
	return newForm(time.Now)
}

func newForm(now func() time.Time) *Form {
	return &Form{now: now, updatedAt: now()}
}

// touch marks the form as active
func (f *Form) touch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedAt = f.now()
}

// Set updates one raw input
func (f *Form) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.raw.set(field, value); err != nil {
		return err
	}
	f.updatedAt = f.now()
	return nil
}

// Submit validates the current inputs and, if they are valid, waits for
// delay and classifies them with c. A validation failure records its notice
// and leaves any previous result in place, as does a canceled ctx.
// Submitting while another submit is waiting returns ErrBusy.
func (f *Form) Submit(ctx context.Context, c classifier.Classifier, delay time.Duration) (classifier.Result, error) {
	return f.submit(ctx, nil, c, delay)
}

// SubmitRaw replaces all four inputs with raw and submits them. While another
// submit is waiting it returns ErrBusy and the inputs are left unchanged.
func (f *Form) SubmitRaw(ctx context.Context, raw RawMeasurement, c classifier.Classifier, delay time.Duration) (classifier.Result, error) {
	return f.submit(ctx, &raw, c, delay)
}

func (f *Form) submit(ctx context.Context, raw *RawMeasurement, c classifier.Classifier, delay time.Duration) (classifier.Result, error) {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return classifier.Result{}, ErrBusy
	}

	if raw != nil {
		f.raw = *raw
		f.updatedAt = f.now()
	}
	submitted := f.raw

	m, err := Parse(submitted)
	if err != nil {
		f.notice = Notice(err)
		f.mu.Unlock()
		return classifier.Result{}, err
	}

	f.busy = true
	f.notice = ""
	f.mu.Unlock()

	waitErr := wait(ctx, delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	if waitErr != nil {
		return classifier.Result{}, waitErr
	}

	res := c.Classify(m)
	f.result = &res
	f.echo = m
	f.echoText = submitted
	f.updatedAt = f.now()
	return res, nil
}

// wait pauses for d or until ctx is done
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset clears the inputs, the result and the notice
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.raw = RawMeasurement{}
	f.result = nil
	f.echo = classifier.Measurement{}
	f.echoText = RawMeasurement{}
	f.notice = ""
	f.updatedAt = f.now()
}

// Snapshot returns a copy of the form state
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Snapshot{
		Values:   f.raw,
		Echo:     f.echo,
		EchoText: f.echoText,
		Notice:   f.notice,
		Busy:     f.busy,
	}
	if f.result != nil {
		res := *f.result
		s.Result = &res
	}
	return s
}

// UpdatedAt returns when the form was last viewed, edited, submitted or reset
func (f *Form) UpdatedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updatedAt
}
