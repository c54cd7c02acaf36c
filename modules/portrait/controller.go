package portrait

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"portrait-studio-server/modules/common/utils"
)

// Generator - anything that can restyle a Base64 portrait
type Generator interface {
	Generate(ctx context.Context, base64Image, mimeType, clothingStyle, scenery string) (string, error)
}

// Controller - owns one State and sequences the encoder and the generator.
// All mutations go through the transition functions in state.go.
type Controller struct {
	mu        sync.Mutex
	state     State
	maxUpload int64
	generator Generator
	listeners []func(State)
}

// NewController - controller starting in Idle with the given form defaults
func NewController(generator Generator, maxUploadBytes int64, clothingStyle, scenery string) *Controller {
	return &Controller{
		state:     NewState(clothingStyle, scenery),
		maxUpload: maxUploadBytes,
		generator: generator,
	}
}

// OnChange - register a listener called after every transition, in order.
// Listeners run with the controller locked and must not call back into it.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State - current snapshot
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View - call fn with the current state while holding the lock, ordered with listener calls.
// fn must not call back into the controller.
func (c *Controller) View(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.state)
}

// SelectImage - validate and encode a newly selected file
func (c *Controller) SelectImage(file utils.BinaryFile) (State, error) {
	if file.Size > c.maxUpload || int64(len(file.Data)) > c.maxUpload {
		msg := FileTooLargeMessage(c.maxUpload)
		log.Warn().Msgf("⚠️ [Portrait] File too large: %s (%d bytes, limit %d)", file.Name, file.Size, c.maxUpload)
		return c.apply(func(s State) State { return RejectImage(s, msg) }), newError(KindFileTooLarge, msg, nil)
	}

	mimeType, err := utils.DetectImageMime(file.Data)
	if err != nil {
		log.Warn().Err(err).Msgf("⚠️ [Portrait] Unsupported upload: %s (declared %s)", file.Name, file.MimeType)
		return c.apply(func(s State) State { return RejectImage(s, MsgUnsupportedImage) }), newError(KindUnsupportedImage, MsgUnsupportedImage, err)
	}
	if file.MimeType != mimeType {
		log.Debug().Msgf("🔍 [Portrait] Declared type %q, detected %s", file.MimeType, mimeType)
		file.MimeType = mimeType
	}

	dataURL, err := utils.FileToDataURL(file.Reader(), file.MimeType)
	if err != nil {
		log.Error().Err(err).Msgf("❌ [Portrait] Failed to read %s", file.Name)
		return c.apply(func(s State) State { return RejectImage(s, MsgRead) }), newError(KindRead, MsgRead, err)
	}

	log.Info().Msgf("📷 [Portrait] Image selected: %s, %s, %d bytes", file.Name, file.MimeType, len(file.Data))
	img := UploadedImage{File: file, DataURL: dataURL}
	return c.apply(func(s State) State { return SelectImage(s, img) }), nil
}

// UpdateFields - set either text field; nil leaves it as is
func (c *Controller) UpdateFields(clothingStyle, scenery *string) State {
	return c.apply(func(s State) State {
		if clothingStyle != nil {
			s = UpdateClothingStyle(s, *clothingStyle)
		}
		if scenery != nil {
			s = UpdateScenery(s, *scenery)
		}
		return s
	})
}

// Submit - run one generation. The loading flag is cleared on every path.
// The generation is not cancelled when ctx is.
func (c *Controller) Submit(ctx context.Context) (State, error) {
	c.mu.Lock()
	next, err := BeginSubmit(c.state)
	if err != nil {
		if !errors.Is(err, ErrBusy) {
			c.setLocked(next)
		}
		c.mu.Unlock()
		return next, err
	}
	c.setLocked(next)
	img := *next.OriginalImage
	clothingStyle, scenery := next.ClothingStyle, next.Scenery
	c.mu.Unlock()

	payload, genErr := c.run(context.WithoutCancel(ctx), img, clothingStyle, scenery)

	c.mu.Lock()
	defer c.mu.Unlock()
	if genErr != nil {
		log.Error().Err(genErr).Msg("❌ [Portrait] Generation failed")
		c.setLocked(Fail(c.state, UserMessage(genErr)))
		return c.state, genErr
	}
	c.setLocked(Succeed(c.state, payload))
	return c.state, nil
}

func (c *Controller) run(ctx context.Context, img UploadedImage, clothingStyle, scenery string) (string, error) {
	base64Image, err := utils.FileToBase64(img.File.Reader(), img.File.MimeType)
	if err != nil {
		return "", newError(KindRead, MsgRead, err)
	}
	return c.generator.Generate(ctx, base64Image, img.File.MimeType, clothingStyle, scenery)
}

func (c *Controller) apply(transition func(State) State) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(transition(c.state))
	return c.state
}

func (c *Controller) setLocked(s State) {
	c.state = s
	for _, fn := range c.listeners {
		fn(s)
	}
}
