package portrait

import (
	"errors"
	"fmt"

	"portrait-studio-server/modules/common/config"
	"portrait-studio-server/modules/common/utils"
)

// Kind - category of a failure surfaced to the user
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindFileTooLarge
	KindUnsupportedImage
	KindRead
	KindConfiguration
	KindPolicyRejection
	KindModelOutput
	KindGeneration
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindFileTooLarge:
		return "file_too_large"
	case KindUnsupportedImage:
		return "unsupported_image"
	case KindRead:
		return "read"
	case KindConfiguration:
		return "configuration"
	case KindPolicyRejection:
		return "policy_rejection"
	case KindModelOutput:
		return "model_output"
	case KindGeneration:
		return "generation"
	case KindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// User-facing messages
const (
	MsgValidation       = "Por favor, carregue uma imagem e preencha todos os campos."
	MsgUnsupportedImage = "Formato de imagem não suportado. Use PNG, JPG ou WEBP."
	MsgRead             = "Falha ao ler o arquivo de imagem."
	MsgConfiguration    = "A chave da API não foi configurada. Verifique as variáveis de ambiente."
	MsgPolicyRejection  = "A geração da imagem foi bloqueada por políticas de segurança. Tente um prompt diferente."
	MsgModelOutput      = "Nenhuma imagem foi gerada pela API. A resposta pode ter sido bloqueada."
	MsgGeneration       = "Falha ao gerar a imagem. Verifique o console para mais detalhes."
	MsgBusy             = "Uma geração já está em andamento."
	MsgUnknown          = "Ocorreu um erro desconhecido."
)

// FileTooLargeMessage - size-limit message for a cap of limitBytes
func FileTooLargeMessage(limitBytes int64) string {
	return fmt.Sprintf("O arquivo de imagem é muito grande. O limite é %s.", config.SizeLabel(limitBytes))
}

// Error - a failure with its kind, the text shown to the user and the technical cause
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrValidation       = &Error{Kind: KindValidation, Message: MsgValidation}
	ErrFileTooLarge     = &Error{Kind: KindFileTooLarge}
	ErrUnsupportedImage = &Error{Kind: KindUnsupportedImage, Message: MsgUnsupportedImage}
	ErrRead             = &Error{Kind: KindRead, Message: MsgRead}
	ErrConfiguration    = &Error{Kind: KindConfiguration, Message: MsgConfiguration}
	ErrPolicyRejection  = &Error{Kind: KindPolicyRejection, Message: MsgPolicyRejection}
	ErrModelOutput      = &Error{Kind: KindModelOutput, Message: MsgModelOutput}
	ErrGeneration       = &Error{Kind: KindGeneration, Message: MsgGeneration}
	ErrBusy             = &Error{Kind: KindBusy, Message: MsgBusy}
)

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// UserMessage - the text to display for any error
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}

	var readErr *utils.ReadError
	if errors.As(err, &readErr) {
		return MsgRead
	}
	return MsgUnknown
}

// KindOf - kind of err, KindUnknown when it is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
