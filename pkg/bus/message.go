package bus

import (
	"encoding/json"
	"fmt"

	"hdexport/pkg/invoice"
)

// Action tags a message
type Action string

const (
	StartCrawl    Action = "START_CRAWL"
	DownloadBatch Action = "DOWNLOAD_BATCH"
	GetAuthToken  Action = "GET_AUTH_TOKEN"
	PrintInvoice  Action = "PRINT_INVOICE"
	CheckReady    Action = "CHECK_READY"
	ClosePrintTab Action = "CLOSE_PRINT_TAB"
)

// NoTokenMessage is the print reply when no session cookie is found
const NoTokenMessage = "Không tìm thấy token jwt trong cookie"

// Message is any action-tagged request. Fields not used by an action are empty.
type Message struct {
	Action  Action               `json:"action"`
	Data    []invoice.Identifier `json:"data,omitempty"`
	Token   string               `json:"token,omitempty"`
	Invoice *invoice.Identifier  `json:"invoice,omitempty"`
	TabID   invoice.Text         `json:"tabId,omitempty"`

	// Sender is the view that sent the message, when the transport knows it
	Sender string `json:"-"`
}

// Decode parses a message and checks that it carries an action
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if msg.Action == "" {
		return Message{}, fmt.Errorf("decode message: missing action")
	}
	return msg, nil
}

// CrawlReply answers START_CRAWL
type CrawlReply struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// BatchReply answers DOWNLOAD_BATCH
type BatchReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TokenReply answers GET_AUTH_TOKEN; a missing token encodes as null
type TokenReply struct {
	Token *string `json:"token"`
}

// PrintReply answers PRINT_INVOICE
type PrintReply struct {
	Status  string `json:"status"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message,omitempty"`
}

// Started is the START_CRAWL success reply
func Started() CrawlReply {
	return CrawlReply{Status: "started"}
}

// CrawlFailed is the START_CRAWL failure reply
func CrawlFailed(err error) CrawlReply {
	return CrawlReply{Status: "error", Message: errorText(err)}
}

// BatchDone is the DOWNLOAD_BATCH success reply
func BatchDone() BatchReply {
	return BatchReply{Success: true}
}

// BatchFailed is the DOWNLOAD_BATCH failure reply
func BatchFailed(err error) BatchReply {
	return BatchReply{Success: false, Error: errorText(err)}
}

// Token wraps a token; the empty string becomes null
func Token(token string) TokenReply {
	if token == "" {
		return TokenReply{}
	}
	return TokenReply{Token: &token}
}

// Printed is the PRINT_INVOICE success reply
func Printed(key string) PrintReply {
	return PrintReply{Status: "ok", Key: key}
}

// PrintFailed is the PRINT_INVOICE failure reply
func PrintFailed(message string) PrintReply {
	return PrintReply{Status: "error", Message: message}
}

func errorText(err error) string {
	if err == nil {
		return "Unknown error"
	}
	return err.Error()
}
