package screen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahabahmd/soil-vegetation-detection/internal/detect"
)

// fakePredictor records calls and returns a canned result or error. When
// block is set, Predict signals started and waits until released.
type fakePredictor struct {
	mu        sync.Mutex
	calls     int
	lastModel detect.Model
	lastName  string
	result    *detect.Result
	err       error

	started  chan struct{}
	released chan struct{}
}

func (f *fakePredictor) Predict(ctx context.Context, model detect.Model, filename string, image []byte) (*detect.Result, error) {
	f.mu.Lock()
	f.calls++
	f.lastModel = model
	f.lastName = filename
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
		<-f.released
	}
	return f.result, f.err
}

func (f *fakePredictor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func soilResult(classes ...string) *detect.Result {
	counts := make(map[string]int)
	var detailed []detect.Detection
	for _, c := range classes {
		counts[c]++
		detailed = append(detailed, detect.Detection{Class: c, Confidence: 90})
	}
	return &detect.Result{
		ResultImageURL: "http://127.0.0.1:8000/out/42.png",
		Summary: &detect.Summary{
			DetectedClasses: classes,
			ClassCounts:     counts,
			Detailed:        detailed,
		},
	}
}

func TestController_SelectImage(t *testing.T) {
	c := NewController(&fakePredictor{})

	c.SelectImage("field.png", "image/png", []byte("bytes"))

	snap := c.Snapshot()
	assert.Equal(t, PhaseImageSelected, snap.Phase)
	assert.Equal(t, "field.png", snap.ImageName)
	require.NotEmpty(t, snap.PreviewToken)

	data, contentType, ok := c.PreviewBytes(snap.PreviewToken)
	require.True(t, ok)
	assert.Equal(t, []byte("bytes"), data)
	assert.Equal(t, "image/png", contentType)
}

func TestController_SelectImage_EmptyIsNoop(t *testing.T) {
	c := NewController(&fakePredictor{})
	c.SelectImage("empty.png", "image/png", nil)

	snap := c.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Empty(t, snap.PreviewToken)
}

func TestController_SelectImage_SupersedesPreview(t *testing.T) {
	c := NewController(&fakePredictor{})

	c.SelectImage("one.png", "image/png", []byte("one"))
	oldToken := c.Snapshot().PreviewToken

	c.SelectImage("two.png", "image/png", []byte("two"))
	newToken := c.Snapshot().PreviewToken
	assert.NotEqual(t, oldToken, newToken)

	_, _, ok := c.PreviewBytes(oldToken)
	assert.False(t, ok, "superseded preview token should not resolve")

	data, _, ok := c.PreviewBytes(newToken)
	require.True(t, ok)
	assert.Equal(t, []byte("two"), data)
}

func TestController_SelectImage_ClearsPriorResult(t *testing.T) {
	predictor := &fakePredictor{result: soilResult("Black Soil")}
	c := NewController(predictor)

	c.SelectImage("field.png", "image/png", []byte("bytes"))
	require.NoError(t, c.Submit(context.Background()))

	snap := c.Snapshot()
	require.NotNil(t, snap.Result)
	require.NotEmpty(t, snap.Insight)

	c.SelectImage("other.png", "image/png", []byte("other"))

	snap = c.Snapshot()
	assert.Equal(t, PhaseImageSelected, snap.Phase)
	assert.Nil(t, snap.Result)
	assert.Empty(t, snap.Insight)
}

func TestController_Submit_NoImage(t *testing.T) {
	predictor := &fakePredictor{result: soilResult("Black Soil")}
	c := NewController(predictor)

	err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoImage)
	assert.Equal(t, 0, predictor.callCount(), "no network call without an image")
	assert.False(t, c.Snapshot().Loading)
}

func TestController_Submit_Success(t *testing.T) {
	predictor := &fakePredictor{result: soilResult("Black Soil")}
	c := NewController(predictor)

	c.SelectImage("field.png", "image/png", []byte("bytes"))
	require.NoError(t, c.Submit(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, PhaseResultReady, snap.Phase)
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "http://127.0.0.1:8000/out/42.png", snap.Result.ResultImageURL)
	assert.Contains(t, snap.Insight, "Black soil")

	assert.Equal(t, detect.ModelSoil, predictor.lastModel)
	assert.Equal(t, "field.png", predictor.lastName)
}

func TestController_Submit_VegetationHasNoInsight(t *testing.T) {
	predictor := &fakePredictor{result: soilResult("Black Soil")}
	c := NewController(predictor)

	c.SelectImage("field.png", "image/png", []byte("bytes"))
	c.ChangeModel(detect.ModelVegetation)
	require.NoError(t, c.Submit(context.Background()))

	snap := c.Snapshot()
	require.NotNil(t, snap.Result)
	assert.Empty(t, snap.Insight)
	assert.Equal(t, detect.ModelVegetation, predictor.lastModel)
}

func TestController_Submit_UnknownClassHasNoInsight(t *testing.T) {
	predictor := &fakePredictor{result: soilResult("Loam")}
	c := NewController(predictor)

	c.SelectImage("field.png", "image/png", []byte("bytes"))
	require.NoError(t, c.Submit(context.Background()))

	snap := c.Snapshot()
	require.NotNil(t, snap.Result)
	assert.Empty(t, snap.Insight)
}

func TestController_Submit_EmptyResult(t *testing.T) {
	predictor := &fakePredictor{err: detect.ErrEmptyResult}
	c := NewController(predictor)

	c.SelectImage("field.png", "image/png", []byte("bytes"))
	err := c.Submit(context.Background())
	assert.ErrorIs(t, err, detect.ErrEmptyResult)

	snap := c.Snapshot()
	assert.Equal(t, PhaseFailed, snap.Phase)
	assert.Nil(t, snap.Result)
	assert.Empty(t, snap.Insight)
	assert.False(t, snap.Loading)
}

func TestController_Submit_TransportError(t *testing.T) {
	predictor := &fakePredictor{err: errors.New("connection refused")}
	c := NewController(predictor)

	c.SelectImage("field.png", "image/png", []byte("bytes"))
	err := c.Submit(context.Background())
	require.Error(t, err)

	snap := c.Snapshot()
	assert.Equal(t, PhaseFailed, snap.Phase)
	assert.Nil(t, snap.Result)
	assert.False(t, snap.Loading, "loading flag must clear on error paths")
}

func TestController_Submit_RejectsReentry(t *testing.T) {
	predictor := &fakePredictor{
		result:   soilResult("Black Soil"),
		started:  make(chan struct{}),
		released: make(chan struct{}),
	}
	c := NewController(predictor)
	c.SelectImage("field.png", "image/png", []byte("bytes"))

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- c.Submit(context.Background())
	}()

	// Wait until the first submission is inside the predictor
	select {
	case <-predictor.started:
	case <-time.After(time.Second):
		t.Fatal("first submit never reached the predictor")
	}

	assert.True(t, c.Snapshot().Loading)
	assert.ErrorIs(t, c.Submit(context.Background()), ErrBusy)

	close(predictor.released)
	require.NoError(t, <-firstDone)

	assert.False(t, c.Snapshot().Loading)
	assert.Equal(t, 1, predictor.callCount())
}

func TestController_ChangeModel_KeepsResult(t *testing.T) {
	predictor := &fakePredictor{result: soilResult("Black Soil")}
	c := NewController(predictor)

	c.SelectImage("field.png", "image/png", []byte("bytes"))
	require.NoError(t, c.Submit(context.Background()))

	// Switching models leaves the previously computed result visible
	c.ChangeModel(detect.ModelVegetation)

	snap := c.Snapshot()
	assert.Equal(t, detect.ModelVegetation, snap.Model)
	assert.NotNil(t, snap.Result)
	assert.NotEmpty(t, snap.Insight)
}

func TestController_DefaultModelIsSoil(t *testing.T) {
	c := NewController(&fakePredictor{})
	assert.Equal(t, detect.ModelSoil, c.Snapshot().Model)
}

func TestController_Close(t *testing.T) {
	predictor := &fakePredictor{result: soilResult("Black Soil")}
	c := NewController(predictor)

	c.SelectImage("field.png", "image/png", []byte("bytes"))
	require.NoError(t, c.Submit(context.Background()))
	token := c.Snapshot().PreviewToken

	c.Close()

	snap := c.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Nil(t, snap.Result)
	_, _, ok := c.PreviewBytes(token)
	assert.False(t, ok)
}
