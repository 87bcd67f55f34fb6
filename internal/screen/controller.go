// Package screen holds the detection screen controller: all state behind the
// single page, updated through named transitions so the flow is testable
// without a rendering environment.
package screen

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/shahabahmd/soil-vegetation-detection/internal/detect"
)

var (
	// ErrNoImage means Submit was called before any image was selected.
	ErrNoImage = errors.New("no image selected")

	// ErrBusy means a submission is already in flight.
	ErrBusy = errors.New("a detection is already in progress")
)

// Phase is where the screen is in its lifecycle.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseImageSelected Phase = "image_selected"
	PhaseSubmitting    Phase = "submitting"
	PhaseResultReady   Phase = "result_ready"
	PhaseFailed        Phase = "failed"
)

// Predictor abstracts the prediction service client.
type Predictor interface {
	Predict(ctx context.Context, model detect.Model, filename string, image []byte) (*detect.Result, error)
}

// SelectedImage is the user's current upload with its preview token. The
// token addresses the bytes for the preview panel and is invalidated when
// the image is replaced or the session is closed.
type SelectedImage struct {
	Name         string
	ContentType  string
	Data         []byte
	PreviewToken string
}

// Controller owns the state of one browser's detection screen.
//
// Threading model: every transition and accessor takes the mutex; Submit
// releases it for the duration of the network call and re-acquires it to
// apply the outcome, so a hung request never blocks rendering. Re-entry
// during an in-flight submission is rejected with ErrBusy.
type Controller struct {
	mu        sync.Mutex
	predictor Predictor

	phase   Phase
	image   *SelectedImage
	model   detect.Model
	loading bool
	result  *detect.Result
	insight string
}

// NewController creates a controller in the idle phase with the default
// model selected.
func NewController(predictor Predictor) *Controller {
	return &Controller{
		predictor: predictor,
		phase:     PhaseIdle,
		model:     detect.DefaultModel,
	}
}

// SelectImage replaces the selected image and discards everything derived
// from the previous one: the old preview token stops resolving and any prior
// result and insight are cleared. An empty selection is a no-op.
func (c *Controller) SelectImage(name, contentType string, data []byte) {
	if len(data) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.image = &SelectedImage{
		Name:         name,
		ContentType:  contentType,
		Data:         data,
		PreviewToken: newToken(),
	}
	c.result = nil
	c.insight = ""
	c.phase = PhaseImageSelected

	log.Debug().Str("name", name).Int("size", len(data)).Msg("image selected")
}

// ChangeModel updates the model choice. An already displayed result is left
// untouched even though it was computed under the previous choice.
func (c *Controller) ChangeModel(model detect.Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

// Submit sends the selected image to the prediction service and applies the
// outcome. Without a selected image it returns ErrNoImage and performs no
// network call; while a submission is in flight it returns ErrBusy. The
// loading flag is cleared on every path, including errors.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.image == nil {
		c.mu.Unlock()
		return ErrNoImage
	}

	// A new submission always treats the prior response as stale.
	c.result = nil
	c.insight = ""
	c.loading = true
	c.phase = PhaseSubmitting
	image := c.image
	model := c.model
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	result, err := c.predictor.Predict(ctx, model, image.Name, image.Data)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.phase = PhaseFailed
		log.Error().Err(err).Str("model", string(model)).Str("image", image.Name).Msg("detection failed")
		return err
	}

	c.result = result
	c.insight = detect.InsightFor(model, result.Summary.TopClass())
	c.phase = PhaseResultReady
	log.Info().
		Str("model", string(model)).
		Str("topClass", result.Summary.TopClass()).
		Msg("detection complete")
	return nil
}

// Snapshot is a render-ready view of the controller state. It carries the
// preview token rather than the image bytes; the bytes are fetched through
// PreviewBytes.
type Snapshot struct {
	Phase        Phase
	Model        detect.Model
	Loading      bool
	ImageName    string
	PreviewToken string
	Result       *detect.Result
	Insight      string
}

// Snapshot returns the current state for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Phase:   c.phase,
		Model:   c.model,
		Loading: c.loading,
		Result:  c.result,
		Insight: c.insight,
	}
	if c.image != nil {
		snap.ImageName = c.image.Name
		snap.PreviewToken = c.image.PreviewToken
	}
	return snap
}

// PreviewBytes resolves a preview token to the selected image's bytes and
// content type. A stale token (superseded selection, closed session) does
// not resolve.
func (c *Controller) PreviewBytes(token string) ([]byte, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.image == nil || token == "" || c.image.PreviewToken != token {
		return nil, "", false
	}
	return c.image.Data, c.image.ContentType, true
}

// Close releases the selected image and everything derived from it. Called
// when the session is evicted.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = nil
	c.result = nil
	c.insight = ""
	c.phase = PhaseIdle
}

func newToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the process is in a bad state
		panic(err)
	}
	return hex.EncodeToString(b)
}
