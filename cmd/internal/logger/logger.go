package logger

import (
	"context"
	"os"
	"strings"

	"github.com/gookit/slog"
	"github.com/gookit/slog/handler"

	"brand-insight/cmd/internal/trace"
)

// Logger 는 서비스 전역에서 사용하는 최소 로거 인터페이스다.
type Logger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Fields 는 구조화 로그를 위한 공통 필드 타입이다.
type Fields map[string]any

// Log 는 전역 로거 인스턴스다. Init 이 호출되지 않아도 info 레벨로 동작한다.
var Log Logger = NewLogger("info")

// InitFromEnv 는 envKey 환경변수의 로그 레벨로 전역 로거를 초기화한다.
func InitFromEnv(envKey string) {
	Init(os.Getenv(envKey))
}

// Init 은 주어진 레벨 문자열로 전역 로거를 교체한다. 빈 값이면 info 를 사용한다.
func Init(level string) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}
	Log = NewLogger(level)
}

// NewLogger 는 주어진 레벨로 gookit/slog 기반 JSON 로거를 생성한다.
func NewLogger(level string) Logger {
	logLevel := slog.LevelByName(level)

	var levels slog.Levels
	for _, lv := range slog.AllLevels {
		if lv <= logLevel {
			levels = append(levels, lv)
		}
	}

	h := handler.NewConsoleHandler(levels)
	// 기본 필드는 datetime/level/message 로만 제한하고 나머지는 top-level Fields 로 출력한다.
	formatter := slog.NewJSONFormatter(func(f *slog.JSONFormatter) {
		f.Fields = []string{
			slog.FieldKeyDatetime,
			slog.FieldKeyLevel,
			slog.FieldKeyMessage,
		}
		f.Aliases = slog.StringMap{
			slog.FieldKeyDatetime: "datetime",
			slog.FieldKeyLevel:    "level",
			slog.FieldKeyMessage:  "message",
		}
		f.TimeFormat = "2006-01-02T15:04:05"
	})
	h.SetFormatter(formatter)

	return slog.NewWithHandlers(h)
}

// TraceFields 는 컨텍스트의 request_id/span_id 를 담은 Fields 를 만든다.
func TraceFields(ctx context.Context) Fields {
	return Fields{
		"request_id": trace.RequestIDFromContext(ctx),
		"span_id":    trace.CurrentSpanID(ctx),
	}
}

// With 는 fields 에 추가 키를 병합한 새 Fields 를 반환한다.
func (f Fields) With(kv Fields) Fields {
	out := make(Fields, len(f)+len(kv))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range kv {
		out[k] = v
	}
	return out
}

// emit 은 gookit/slog 로거면 fields 를 top-level 키로 싣고, 아니면 메시지만 남긴다.
// SERVICE_NAME 이 있으면 service_name 을 채운다. 호출자의 map 은 수정하지 않는다.
func emit(msg string, fields Fields, structured func(*slog.Record, ...any), plain func(...any)) {
	lg, ok := Log.(*slog.Logger)
	if !ok {
		plain(msg)
		return
	}
	out := Fields{}
	if sn := os.Getenv("SERVICE_NAME"); sn != "" {
		out["service_name"] = sn
	}
	out = out.With(fields)
	structured(lg.WithFields(slog.M(out)), msg)
}

func InfoWithFields(msg string, fields Fields) {
	emit(msg, fields, (*slog.Record).Info, Log.Info)
}

func DebugWithFields(msg string, fields Fields) {
	emit(msg, fields, (*slog.Record).Debug, Log.Debug)
}

func WarnWithFields(msg string, fields Fields) {
	emit(msg, fields, (*slog.Record).Warn, Log.Warn)
}

func ErrorWithFields(msg string, fields Fields) {
	emit(msg, fields, (*slog.Record).Error, Log.Error)
}
