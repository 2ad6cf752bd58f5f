package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/polishtutor/polishtutor/internal/consts"
	"github.com/polishtutor/polishtutor/internal/logger"
)

// handlePhotoMessage runs the photo pipeline: validate, download the largest
// variant to a scratch file owned by this request, upload it, ask about it,
// reply, and always remove the scratch file once it has been created.
func (b *Bot) handlePhotoMessage(ctx context.Context, in InboundMessage) {
	if len(in.Photos) == 0 {
		logger.Debug("No photo is provided", map[string]interface{}{"chat_id": in.ChatID})
		return
	}
	if !strings.Contains(in.Text, b.mention) {
		logger.Debug("Bot is not mentioned in photo caption", map[string]interface{}{"chat_id": in.ChatID})
		b.recordPhoto("ignored")
		return
	}

	photo := in.Photos[len(in.Photos)-1]
	status := "success"

	defer b.recordPhotoStatus(&status)
	defer func() {
		if r := recover(); r != nil {
			status = "error"
			logger.Error("Photo pipeline panic recovered", map[string]interface{}{
				"chat_id": in.ChatID,
				"panic":   r,
			})
			b.replyPhotoFailure(ctx, in)
		}
	}()

	reply, err := b.answerPhoto(ctx, photo.FileID, in.Text)
	if err != nil {
		status = "error"
		logger.Error("Error processing photo message", map[string]interface{}{
			"chat_id": in.ChatID,
			"file_id": photo.FileID,
			"error":   err.Error(),
		})
		b.replyPhotoFailure(ctx, in)
		return
	}

	if err := b.sendText(ctx, in.ChatID, in.MessageID, reply); err != nil {
		status = "error"
		logger.Error("Failed to send photo reply", map[string]interface{}{
			"chat_id": in.ChatID,
			"error":   err.Error(),
		})
		b.replyPhotoFailure(ctx, in)
		return
	}

	logger.Info("Photo response sent", map[string]interface{}{
		"chat_id": in.ChatID,
		"file_id": photo.FileID,
	})
}

func (b *Bot) answerPhoto(ctx context.Context, fileID, caption string) (string, error) {
	out, err := b.createScratchFile(fileID)
	if err != nil {
		return "", err
	}
	localPath := out.Name()
	defer b.removeScratchFile(localPath)

	if err := b.downloadPhoto(ctx, fileID, out); err != nil {
		return "", err
	}

	prompt := strings.TrimSpace(strings.ReplaceAll(caption, b.mention, ""))

	artifact := b.tutor.UploadImage(ctx, localPath)
	if !artifact.OK() {
		logger.Warn("Image upload degraded, continuing with sentinel artifact", map[string]interface{}{
			"file_id": fileID,
			"reason":  artifact.Reason.String(),
		})
	}
	// TODO: return an upload error here instead of asking the backend about
	// the sentinel text once the degraded reply is no longer wanted.

	res := b.tutor.DescribeImage(ctx, artifact, prompt)
	if !res.OK() {
		return "", fmt.Errorf("image answer failed (%s): %w", res.Reason, res.Err)
	}

	return res.Text, nil
}

// downloadPhoto fetches the Telegram file into out and closes it.
func (b *Bot) downloadPhoto(ctx context.Context, fileID string, out *os.File) (err error) {
	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to write photo: %w", closeErr)
		}
	}()

	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download file: HTTP %d", resp.StatusCode)
	}

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write photo: %w", err)
	}

	logger.Debug("Photo downloaded", map[string]interface{}{
		"path": out.Name(),
		"size": written,
	})
	return nil
}

// createScratchFile creates a fresh file named after the Telegram file id.
// The random suffix keeps concurrent requests for the same photo apart.
func (b *Bot) createScratchFile(fileID string) (*os.File, error) {
	if err := os.MkdirAll(b.config.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	pattern := filepath.Base(fileID) + "-*" + consts.PhotoExtension
	out, err := os.CreateTemp(b.config.DownloadDir, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	return out, nil
}

func (b *Bot) removeScratchFile(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		logger.Debug("Temporary file deleted", map[string]interface{}{"path": path})
	case errors.Is(err, os.ErrNotExist):
	default:
		logger.Error("Failed to delete temporary file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

func (b *Bot) replyPhotoFailure(ctx context.Context, in InboundMessage) {
	if err := b.sendText(ctx, in.ChatID, in.MessageID, consts.PhotoFailureMessage); err != nil {
		logger.Error("Failed to send photo failure message", map[string]interface{}{
			"chat_id": in.ChatID,
			"error":   err.Error(),
		})
	}
}

func (b *Bot) recordPhotoStatus(status *string) {
	b.recordPhoto(*status)
}

func (b *Bot) recordPhoto(status string) {
	if b.recorder != nil {
		b.recorder.RecordPhotoRequest(status)
	}
}
