package report

import (
	"fmt"
	"time"
)

// Type identifies an outbound message
type Type string

const (
	TypeProgress  Type = "progress"
	TypeResult    Type = "result"
	TypeCaptcha   Type = "captcha_detected"
	TypeRateLimit Type = "rate_limit_detected"
	TypeBreak     Type = "break_notification"
	TypeFinished  Type = "scan_finished"
)

// Localized notices shown to the operator
const (
	CaptchaNotice   = `Обнаружена капча. Пожалуйста, решите её вручную и нажмите "Продолжить после капчи".`
	RateLimitNotice = "Обнаружено ограничение скорости. Пауза 10 секунд..."
	breakNotice     = "Пауза %dс для предотвращения капчи..."
)

// Message is one event sent from the scanner to the control surface
type Message struct {
	Type               Type          `json:"type"`
	Total              int           `json:"total,omitempty"`
	Processed          int           `json:"processed,omitempty"`
	SlowdownMultiplier float64       `json:"slowdownMultiplier,omitempty"`
	Content            string        `json:"content,omitempty"`
	Message            string        `json:"message,omitempty"`
	Duration           time.Duration `json:"duration,omitempty"`
	Time               time.Time     `json:"time"`
}

// Progress reports how far the scan has come
func Progress(total, processed int, multiplier float64) Message {
	return Message{
		Type:               TypeProgress,
		Total:              total,
		Processed:          processed,
		SlowdownMultiplier: multiplier,
		Time:               time.Now(),
	}
}

// Result carries newly flagged lines
func Result(content string) Message {
	return Message{Type: TypeResult, Content: content, Time: time.Now()}
}

// Captcha tells the operator to solve a challenge
func Captcha() Message {
	return Message{Type: TypeCaptcha, Message: CaptchaNotice, Time: time.Now()}
}

// RateLimit tells the operator the scan is backing off
func RateLimit() Message {
	return Message{Type: TypeRateLimit, Message: RateLimitNotice, Time: time.Now()}
}

// Break announces an anti-burst pause of d
func Break(d time.Duration) Message {
	return Message{
		Type:     TypeBreak,
		Message:  fmt.Sprintf(breakNotice, int(d.Round(time.Second)/time.Second)),
		Duration: d,
		Time:     time.Now(),
	}
}

// Finished announces how a scan pass ended
func Finished(outcome string, total, processed int) Message {
	return Message{
		Type:      TypeFinished,
		Total:     total,
		Processed: processed,
		Message:   outcome,
		Time:      time.Now(),
	}
}
