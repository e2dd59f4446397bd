package server

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/archdrop/archdrop/internal/apierr"
	"github.com/archdrop/archdrop/internal/config"
	archdropcrypto "github.com/archdrop/archdrop/internal/crypto"
)

type sendHandlers struct {
	*Deps
}

// manifest is the first endpoint on the send path: fetching it reveals file
// names and sizes, so it claims the session rather than merely validating
// it.
func (h *sendHandlers) manifest(c *gin.Context) {
	token := c.Param("token")
	clientID := c.Query("clientId")

	if err := h.Session.ClaimOrValidate(token, clientID); err != nil {
		apierr.Unauthorized(err).Abort(c, h.Log.Zerolog())
		return
	}
	h.Log.SessionClaimed(token, clientID, "send")
	c.JSON(http.StatusOK, h.Session.Manifest)
}

func (h *sendHandlers) chunk(c *gin.Context) {
	token := c.Param("token")
	clientID := c.Query("clientId")

	if err := h.Session.RequireActive(token, clientID); err != nil {
		apierr.Unauthorized(err).Abort(c, h.Log.Zerolog())
		return
	}

	fileIndex, err := strconv.Atoi(c.Param("fileIndex"))
	if err != nil || fileIndex < 0 || fileIndex >= len(h.Session.Manifest.Files) {
		apierr.New(errBadFileIndex).WithStatus(http.StatusBadRequest).Abort(c, h.Log.Zerolog())
		return
	}
	chunkIndex, err := strconv.ParseUint(c.Param("chunkIndex"), 10, 32)
	if err != nil {
		apierr.New(errBadChunkIndex).WithStatus(http.StatusBadRequest).Abort(c, h.Log.Zerolog())
		return
	}

	entry := h.Session.Manifest.Files[fileIndex]

	start := chunkIndex * config.ChunkSize
	if start >= entry.Size {
		apierr.New(errChunkOutOfBounds).WithStatus(http.StatusBadRequest).Abort(c, h.Log.Zerolog())
		return
	}
	end := start + config.ChunkSize
	if end > entry.Size {
		end = entry.Size
	}

	buf := make([]byte, end-start)
	if err := readChunk(entry.FullPath, int64(start), buf); err != nil {
		apierr.New(err).Abort(c, h.Log.Zerolog())
		return
	}

	ciphertext, err := archdropcrypto.EncryptChunk(h.Session.AEAD, entry.NonceBase(), uint32(chunkIndex), buf)
	if err != nil {
		apierr.New(err).Abort(c, h.Log.Zerolog())
		return
	}

	processed := h.Session.IncrementChunksProcessed()
	h.Metrics.ChunksProcessed.Inc()
	h.Metrics.BytesTransferred.Add(float64(len(buf)))
	h.Log.TransferProgress(token, processed, h.Session.Manifest.TotalChunks())

	c.Data(http.StatusOK, "application/octet-stream", ciphertext)
}

func (h *sendHandlers) hash(c *gin.Context) {
	token := c.Param("token")
	clientID := c.Query("clientId")

	if err := h.Session.RequireActive(token, clientID); err != nil {
		apierr.Unauthorized(err).Abort(c, h.Log.Zerolog())
		return
	}

	fileIndex, err := strconv.Atoi(c.Param("fileIndex"))
	if err != nil || fileIndex < 0 || fileIndex >= len(h.Session.Manifest.Files) {
		apierr.New(errBadFileIndex).WithStatus(http.StatusBadRequest).Abort(c, h.Log.Zerolog())
		return
	}
	entry := h.Session.Manifest.Files[fileIndex]

	sum, err := hashFile(entry.FullPath)
	if err != nil {
		apierr.New(err).Abort(c, h.Log.Zerolog())
		return
	}
	c.JSON(http.StatusOK, gin.H{"sha256": sum})
}

func (h *sendHandlers) complete(c *gin.Context) {
	token := c.Param("token")
	clientID := c.Query("clientId")

	if err := h.Session.Complete(token, clientID); err != nil {
		apierr.Unauthorized(err).Abort(c, h.Log.Zerolog())
		return
	}
	h.Log.TransferCompleted(token)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "download complete"})
}

func readChunk(path string, start int64, buf []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	buf := make([]byte, 64*1024)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
