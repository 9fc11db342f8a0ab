package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hazadus/go-muse/internal/utils"
)

// CommandKind вид команды клиента
type CommandKind int

const (
	CommandPlay CommandKind = iota
	CommandPause
	CommandStop
	CommandStatus
	CommandStart
	CommandDownload
	CommandUpdate
)

var commandNames = map[CommandKind]string{
	CommandPlay:     "Play",
	CommandPause:    "Pause",
	CommandStop:     "Stop",
	CommandStatus:   "Status",
	CommandStart:    "Start",
	CommandDownload: "Download",
	CommandUpdate:   "Update",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command команда, отправляемая клиентом серверу.
// URL используется только командой Download.
type Command struct {
	Kind CommandKind
	URL  string
}

// Play, Pause, Stop и Status команды без аргументов
var (
	Play   = Command{Kind: CommandPlay}
	Pause  = Command{Kind: CommandPause}
	Stop   = Command{Kind: CommandStop}
	Status = Command{Kind: CommandStatus}
)

// Download возвращает команду загрузки трека по URL
func Download(url string) Command {
	return Command{Kind: CommandDownload, URL: url}
}

type downloadArgs struct {
	URL string `json:"url"`
}

// MarshalJSON кодирует команду как внешне тегированное объединение:
// варианты без полей строкой ("Play"), варианты с полями объектом с одним ключом.
func (c Command) MarshalJSON() ([]byte, error) {
	name, ok := commandNames[c.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: неизвестная команда %d", ErrProtocol, int(c.Kind))
	}
	if c.Kind == CommandDownload {
		return json.Marshal(map[string]downloadArgs{name: {URL: c.URL}})
	}
	return json.Marshal(name)
}

// UnmarshalJSON разбирает команду в формате MarshalJSON
func (c *Command) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		kind, ok := kindByName(name)
		if !ok || kind == CommandDownload {
			return fmt.Errorf("%w: неизвестная команда %q", ErrProtocol, name)
		}
		*c = Command{Kind: kind}
		return nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil || len(tagged) != 1 {
		return fmt.Errorf("%w: некорректная команда %s", ErrProtocol, data)
	}
	for name, raw := range tagged {
		kind, ok := kindByName(name)
		if !ok {
			return fmt.Errorf("%w: неизвестная команда %q", ErrProtocol, name)
		}
		if kind != CommandDownload {
			*c = Command{Kind: kind}
			return nil
		}
		var args downloadArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("%w: некорректные аргументы Download: %v", ErrProtocol, err)
		}
		*c = Command{Kind: kind, URL: args.URL}
	}
	return nil
}

func kindByName(name string) (CommandKind, bool) {
	for kind, n := range commandNames {
		if n == name {
			return kind, true
		}
	}
	return 0, false
}

// Response ответ сервера: либо Success, либо Error с текстом
type Response struct {
	OK      bool
	Message string
}

// Success создает успешный ответ
func Success(msg string) Response {
	return Response{OK: true, Message: msg}
}

// Failure создает ответ с ошибкой
func Failure(msg string) Response {
	return Response{OK: false, Message: msg}
}

func (r Response) tag() string {
	if r.OK {
		return "Success"
	}
	return "Error"
}

// MarshalJSON кодирует ответ как {"Success":"..."} или {"Error":"..."}
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{r.tag(): r.Message})
}

// UnmarshalJSON разбирает ответ в формате MarshalJSON
func (r *Response) UnmarshalJSON(data []byte) error {
	var tagged map[string]string
	if err := json.Unmarshal(data, &tagged); err != nil || len(tagged) != 1 {
		return fmt.Errorf("%w: некорректный ответ %s", ErrProtocol, data)
	}
	for tag, msg := range tagged {
		switch tag {
		case "Success":
			*r = Success(msg)
		case "Error":
			*r = Failure(msg)
		default:
			return fmt.Errorf("%w: неизвестный тип ответа %q", ErrProtocol, tag)
		}
	}
	return nil
}

// WriteCommand сериализует команду и отправляет ее одним кадром
func WriteCommand(w io.Writer, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("ошибка сериализации команды: %w", err)
	}
	return WriteFrame(w, payload)
}

// ReadCommand читает один кадр и разбирает из него команду
func ReadCommand(r io.Reader) (Command, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return Command{}, err
	}
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, protocolError(err)
	}
	return cmd, nil
}

// WriteResponse отправляет ответ одним кадром. Слишком длинный текст
// укорачивается так, чтобы ответ поместился в кадр.
func WriteResponse(w io.Writer, resp Response) error {
	payload, err := encodeResponse(resp)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

func encodeResponse(resp Response) ([]byte, error) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации ответа: %w", err)
	}
	// Экранирование JSON может раздуть текст, поэтому урезаем до тех пор, пока не влезет
	for budget := len(resp.Message); len(payload) > MaxPayload && budget > 0; {
		budget -= len(payload) - MaxPayload
		short := resp
		short.Message = utils.TruncateBytes(resp.Message, max(budget, 0))
		if payload, err = json.Marshal(short); err != nil {
			return nil, fmt.Errorf("ошибка сериализации ответа: %w", err)
		}
	}
	return payload, nil
}

// ReadResponse читает один кадр и разбирает из него ответ
func ReadResponse(r io.Reader) (Response, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return Response{}, protocolError(err)
	}
	return resp, nil
}

func protocolError(err error) error {
	if errors.Is(err, ErrProtocol) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrProtocol, err)
}

// Exchange отправляет команду и ждет один ответ
func Exchange(rw io.ReadWriter, cmd Command) (Response, error) {
	if err := WriteCommand(rw, cmd); err != nil {
		return Response{}, err
	}
	return ReadResponse(rw)
}
