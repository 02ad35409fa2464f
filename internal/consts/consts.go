// Package consts defines application-wide constants.
package consts

import "time"

const (
	// MaxRequestBodySize caps JSON request bodies.
	MaxRequestBodySize = 1 << 20
	// DefaultVersionTimeout bounds the yt-dlp --version probe.
	DefaultVersionTimeout = 15 * time.Second
	// UnknownUploader is substituted by yt-dlp when a video has no uploader.
	UnknownUploader = "Unknown"
	// ThumbnailFormat is the image format for thumbnails that cannot be embedded.
	ThumbnailFormat = "jpg"
)

// HTTP response messages.
const (
	// RespInvalidRequestBody is returned when the request body is invalid.
	RespInvalidRequestBody = "invalid request body"
	// RespQueryParamMissing is returned when a required query parameter is missing or invalid.
	RespQueryParamMissing = "query param missing or invalid"
	// RespUnprocessableEntity is returned when the request cannot be processed.
	RespUnprocessableEntity = "unprocessable entity"
	// RespBatchStarted is returned when a batch is accepted.
	RespBatchStarted = "batch started"
	// RespBatchStartFail is returned when a batch cannot be started.
	RespBatchStartFail = "batch start failed"
	// RespBatchActive is returned when a batch is already running.
	RespBatchActive = "batch already active"
	// RespBatchStopped is returned after a stop request.
	RespBatchStopped = "stop requested"
	// RespBatchRetrieved is returned with the batch snapshot.
	RespBatchRetrieved = "batch retrieved"
	// RespLogsRetrieved is returned with journal events.
	RespLogsRetrieved = "logs retrieved"
	// RespOptionsRetrieved is returned with the option form state.
	RespOptionsRetrieved = "options retrieved"
	// RespOptionsUpdated is returned after the option form state changed.
	RespOptionsUpdated = "options updated"
	// RespVersionRetrieved is returned with the downloader version.
	RespVersionRetrieved = "version retrieved"
	// RespVersionFail is returned when the downloader version cannot be read.
	RespVersionFail = "version unavailable"
)

// Engine log lines forwarded to the presentation layer.
const (
	// MsgItemStart prefixes the first log line of an item.
	MsgItemStart = "▶ "
	// MsgItemDone prefixes the success line of an item.
	MsgItemDone = "✔ done: "
	// MsgItemExit is the failure line of an item, formatted with exit code and URL.
	MsgItemExit = "✘ error (exit code %d): %s"
	// MsgItemBuildFail is the failure line of an item whose arguments could not be built.
	MsgItemBuildFail = "✘ invalid arguments for %s: %v"
	// MsgItemSpawnFail is the failure line of an item whose process could not be started.
	MsgItemSpawnFail = "✘ failed to start %s: %v"
	// MsgItemTerminated is the note for the item that was running when the batch stopped.
	MsgItemTerminated = "⚠ download terminated: "
	// MsgBatchStart is the first line of a batch, formatted with the item count.
	MsgBatchStart = "== starting %d download(s) =="
	// MsgBatchCompleted is the last line of a completed batch.
	MsgBatchCompleted = "== all downloads completed =="
	// MsgBatchStopped is the last line of a stopped batch.
	MsgBatchStopped = "⚠ downloads stopped"
)
