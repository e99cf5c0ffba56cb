package upload

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// multipartSlack covers boundaries and part headers around the file itself.
const multipartSlack = 64 << 10

// HandleUpload accepts a multipart form with the image under "image".
func (s *Store) HandleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxBytes()+multipartSlack)

	fh, err := c.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": ErrTooLarge.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if fh.Size > s.MaxBytes() {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": ErrTooLarge.Error()})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is unreadable"})
		return
	}
	defer f.Close()

	stored, err := s.Save(f)
	switch {
	case errors.Is(err, ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Str("module", "upload").Str("client", c.GetString("client_token")).Msg("save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"url": stored.URL})
	}
}

// HandleServe returns a stored file by its :name path parameter.
func (s *Store) HandleServe(c *gin.Context) {
	data, mime, err := s.Open(c.Param("name"))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Str("module", "upload").Msg("read failed")
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, mime, data)
}
