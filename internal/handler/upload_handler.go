package handler

import (
	"github.com/gin-gonic/gin"

	"ielts-tutor-go/internal/middleware"
	"ielts-tutor-go/internal/service"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/response"
)

// UploadHandler 负责处理录音上传请求。
type UploadHandler struct {
	audioService service.AudioService
}

// NewUploadHandler 创建一个新的 UploadHandler。
func NewUploadHandler(audioService service.AudioService) *UploadHandler {
	return &UploadHandler{audioService: audioService}
}

// UploadAudio 处理 multipart 表单中 audio 字段的录音上传。
func (h *UploadHandler) UploadAudio(c *gin.Context) {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		log.Warnf("UploadAudio: Missing audio file, error: %v", err)
		response.BadRequest(c, "Audio file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("UploadAudio: Failed to open uploaded file, error: %v", err)
		response.Internal(c, "Failed to read audio file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	uploaded, err := h.audioService.Upload(c.Request.Context(), middleware.CurrentUserID(c), fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		response.FromError(c, err, "Failed to upload audio")
		return
	}
	response.Created(c, uploaded, "Audio uploaded successfully")
}
