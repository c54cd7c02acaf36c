package portrait

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portrait-studio-server/modules/common/utils"
)

const testMaxUpload = 4 * 1024 * 1024

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	payload string
	err     error
	block   chan struct{}
	started chan struct{}

	base64Image, mimeType, clothingStyle, scenery string
}

func (g *fakeGenerator) Generate(ctx context.Context, base64Image, mimeType, clothingStyle, scenery string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.base64Image, g.mimeType = base64Image, mimeType
	g.clothingStyle, g.scenery = clothingStyle, scenery
	g.mu.Unlock()

	if g.started != nil {
		close(g.started)
	}
	if g.block != nil {
		<-g.block
	}
	return g.payload, g.err
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// jpegFile - a real JPEG header padded to size bytes
func jpegFile(t *testing.T, name string, size int) utils.BinaryFile {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	data := buf.Bytes()
	if size > len(data) {
		data = append(data, make([]byte, size-len(data))...)
	}
	return utils.BinaryFile{Name: name, MimeType: utils.MimeJPEG, Size: int64(len(data)), Data: data}
}

func TestControllerGeneratesPortrait(t *testing.T) {
	gen := &fakeGenerator{payload: "QUJD"}
	ctrl := NewController(gen, testMaxUpload, "uma jaqueta", "uma rua")

	file := jpegFile(t, "me.jpg", 2*1024*1024)
	state, err := ctrl.SelectImage(file)
	require.NoError(t, err)
	require.NotNil(t, state.OriginalImage)
	assert.Equal(t, "data:image/jpeg;base64,", state.OriginalImage.DataURL[:len("data:image/jpeg;base64,")])

	clothing, scenery := "red dress", "Paris street"
	ctrl.UpdateFields(&clothing, &scenery)

	state, err = ctrl.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,QUJD", state.GeneratedImage)
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Error)

	assert.Equal(t, 1, gen.callCount())
	assert.Equal(t, "red dress", gen.clothingStyle)
	assert.Equal(t, "Paris street", gen.scenery)
	assert.Equal(t, utils.MimeJPEG, gen.mimeType)

	expected, err := utils.FileToBase64(file.Reader(), file.MimeType)
	require.NoError(t, err)
	assert.Equal(t, expected, gen.base64Image)
}

func TestControllerRejectsOversizedFile(t *testing.T) {
	ctrl := NewController(&fakeGenerator{}, testMaxUpload, "a", "b")

	_, err := ctrl.SelectImage(jpegFile(t, "small.jpg", 1024))
	require.NoError(t, err)

	big := utils.BinaryFile{Name: "big.jpg", MimeType: utils.MimeJPEG, Size: 5 * 1024 * 1024}
	state, err := ctrl.SelectImage(big)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, "O arquivo de imagem é muito grande. O limite é 4MB.", state.Error)
	require.NotNil(t, state.OriginalImage)
	assert.Equal(t, "small.jpg", state.OriginalImage.File.Name)
}

func TestControllerRejectsUnsupportedFile(t *testing.T) {
	ctrl := NewController(&fakeGenerator{}, testMaxUpload, "a", "b")

	state, err := ctrl.SelectImage(utils.BinaryFile{Name: "notes.txt", MimeType: "image/png", Size: 5, Data: []byte("hello")})
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	assert.Equal(t, MsgUnsupportedImage, state.Error)
	assert.Nil(t, state.OriginalImage)
}

func TestControllerDetectedMimeWins(t *testing.T) {
	ctrl := NewController(&fakeGenerator{}, testMaxUpload, "a", "b")

	file := jpegFile(t, "photo.png", 0)
	file.MimeType = "image/png"
	state, err := ctrl.SelectImage(file)
	require.NoError(t, err)
	assert.Equal(t, utils.MimeJPEG, state.OriginalImage.File.MimeType)
}

func TestControllerNewImageClearsResult(t *testing.T) {
	ctrl := NewController(&fakeGenerator{payload: "QUJD"}, testMaxUpload, "a", "b")
	_, err := ctrl.SelectImage(jpegFile(t, "one.jpg", 0))
	require.NoError(t, err)
	_, err = ctrl.Submit(context.Background())
	require.NoError(t, err)

	state, err := ctrl.SelectImage(jpegFile(t, "two.jpg", 0))
	require.NoError(t, err)
	assert.Empty(t, state.GeneratedImage)
	assert.Equal(t, PhaseHasImage, state.Phase())
}

func TestControllerValidationSkipsGenerator(t *testing.T) {
	gen := &fakeGenerator{payload: "QUJD"}
	ctrl := NewController(gen, testMaxUpload, "a", "b")

	state, err := ctrl.Submit(context.Background())
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, MsgValidation, state.Error)

	_, err = ctrl.SelectImage(jpegFile(t, "me.jpg", 0))
	require.NoError(t, err)
	empty := ""
	ctrl.UpdateFields(&empty, nil)

	state, err = ctrl.Submit(context.Background())
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, state.IsLoading)
	assert.Zero(t, gen.callCount())
}

func TestControllerFailureKeepsOriginal(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"policy", ErrPolicyRejection, MsgPolicyRejection},
		{"model output", ErrModelOutput, MsgModelOutput},
		{"configuration", ErrConfiguration, MsgConfiguration},
		{"unknown", errors.New("boom"), MsgUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewController(&fakeGenerator{err: tt.err}, testMaxUpload, "a", "b")
			_, err := ctrl.SelectImage(jpegFile(t, "me.jpg", 0))
			require.NoError(t, err)

			state, err := ctrl.Submit(context.Background())
			assert.Error(t, err)
			assert.Equal(t, tt.message, state.Error)
			assert.False(t, state.IsLoading)
			assert.Empty(t, state.GeneratedImage)
			require.NotNil(t, state.OriginalImage)
			assert.Equal(t, "me.jpg", state.OriginalImage.File.Name)
		})
	}
}

func TestControllerBusyWhileLoading(t *testing.T) {
	gen := &fakeGenerator{payload: "QUJD", block: make(chan struct{}), started: make(chan struct{})}
	ctrl := NewController(gen, testMaxUpload, "a", "b")
	_, err := ctrl.SelectImage(jpegFile(t, "me.jpg", 0))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(context.Background())
		done <- err
	}()
	<-gen.started

	state, err := ctrl.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, state.IsLoading)
	assert.Empty(t, state.Error)

	close(gen.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gen.callCount())
	assert.False(t, ctrl.State().IsLoading)
}

func TestControllerIgnoresCallerCancellation(t *testing.T) {
	gen := &fakeGenerator{payload: "QUJD", block: make(chan struct{}), started: make(chan struct{})}
	ctrl := NewController(gen, testMaxUpload, "a", "b")
	_, err := ctrl.SelectImage(jpegFile(t, "me.jpg", 0))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan State, 1)
	go func() {
		state, _ := ctrl.Submit(ctx)
		done <- state
	}()
	<-gen.started
	cancel()
	close(gen.block)

	state := <-done
	assert.Equal(t, "data:image/jpeg;base64,QUJD", state.GeneratedImage)
}

func TestControllerListeners(t *testing.T) {
	ctrl := NewController(&fakeGenerator{payload: "QUJD"}, testMaxUpload, "a", "b")

	var phases []Phase
	ctrl.OnChange(func(s State) { phases = append(phases, s.Phase()) })

	_, err := ctrl.SelectImage(jpegFile(t, "me.jpg", 0))
	require.NoError(t, err)
	_, err = ctrl.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Phase{PhaseHasImage, PhaseLoading, PhaseHasResult}, phases)
}

func TestControllerView(t *testing.T) {
	ctrl := NewController(&fakeGenerator{}, testMaxUpload, "a", "b")
	v := "red dress"
	ctrl.UpdateFields(&v, nil)

	var seen State
	ctrl.View(func(s State) { seen = s })
	assert.Equal(t, "red dress", seen.ClothingStyle)
	assert.Equal(t, ctrl.State(), seen)
}
