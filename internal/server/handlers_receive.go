package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/archdrop/archdrop/internal/apierr"
	"github.com/archdrop/archdrop/internal/config"
	archdropcrypto "github.com/archdrop/archdrop/internal/crypto"
	"github.com/archdrop/archdrop/internal/security"
	"github.com/archdrop/archdrop/internal/session"
	"github.com/archdrop/archdrop/internal/storage"
)

type receiveHandlers struct {
	*Deps
}

// receiveManifestRequest is the client's declared file list, posted once
// before any chunk: [{relative_path, size}, ...].
type receiveManifestRequest struct {
	Files []struct {
		RelativePath string `json:"relative_path"`
		Size         uint64 `json:"size"`
	} `json:"files"`
}

func (h *receiveHandlers) manifest(c *gin.Context) {
	if h.Session.Mode != session.ModeReceive {
		apierr.New(errNotReceiveMode).Abort(c, h.Log.Zerolog())
		return
	}

	token := c.Param("token")
	clientID := c.Query("clientId")

	var req receiveManifestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.New(err).WithStatus(http.StatusBadRequest).Abort(c, h.Log.Zerolog())
		return
	}

	if err := h.Session.ClaimOrValidate(token, clientID); err != nil {
		apierr.Unauthorized(err).Abort(c, h.Log.Zerolog())
		return
	}

	var totalChunks uint64
	for _, f := range req.Files {
		if f.Size == 0 {
			continue
		}
		totalChunks += (f.Size + config.ChunkSize - 1) / config.ChunkSize
	}
	h.Session.SetTotalChunks(totalChunks)
	h.Log.SessionClaimed(token, clientID, "receive")

	c.JSON(http.StatusOK, gin.H{"success": true, "total_chunks": totalChunks})
}

func (h *receiveHandlers) chunk(c *gin.Context) {
	token := c.Param("token")
	clientID := c.PostForm("clientId")
	relativePath := c.PostForm("relativePath")
	chunkIndex, err := strconv.ParseUint(c.PostForm("chunkIndex"), 10, 64)
	if err != nil {
		apierr.New(errBadChunkIndex).WithStatus(http.StatusBadRequest).Abort(c, h.Log.Zerolog())
		return
	}
	totalChunks, err := strconv.ParseUint(c.PostForm("totalChunks"), 10, 64)
	if err != nil {
		apierr.New(errBadChunkIndex).WithStatus(http.StatusBadRequest).Abort(c, h.Log.Zerolog())
		return
	}
	fileSize, err := strconv.ParseUint(c.PostForm("fileSize"), 10, 64)
	if err != nil {
		apierr.New(errBadChunkIndex).WithStatus(http.StatusBadRequest).Abort(c, h.Log.Zerolog())
		return
	}
	nonceField := c.PostForm("nonce")

	fileID := security.HashPath(relativePath)
	_, alreadyTracked := h.Registry.Get(fileID)

	if !alreadyTracked && chunkIndex == 0 {
		if err := h.Session.ClaimOrValidate(token, clientID); err != nil {
			apierr.Unauthorized(err).Abort(c, h.Log.Zerolog())
			return
		}
	} else {
		if err := h.Session.RequireActive(token, clientID); err != nil {
			apierr.Unauthorized(err).Abort(c, h.Log.Zerolog())
			return
		}
	}

	state, wasCreated, err := h.Registry.GetOrCreate(fileID, func() (*session.FileReceiveState, error) {
		if err := security.ValidatePath(relativePath); err != nil {
			return nil, err
		}
		// Whichever chunk arrives first must carry the nonce: chunks may be
		// uploaded out of order, and nothing can be decrypted without it.
		// Requiring it at creation also means NonceBase is immutable once the
		// entry is published, so concurrent chunks read it without a lock.
		if nonceField == "" {
			return nil, errMissingNonce
		}
		base, err := archdropcrypto.NonceBaseFromBase64(nonceField)
		if err != nil {
			return nil, err
		}
		destPath := filepath.Join(h.Session.DestDir, filepath.FromSlash(relativePath))

		cs, err := storage.Open(destPath)
		if err != nil {
			return nil, err
		}

		return &session.FileReceiveState{
			Storage:      cs,
			RelativePath: relativePath,
			FileSize:     fileSize,
			TotalChunks:  totalChunks,
			NonceBase:    base,
		}, nil
	})
	if err != nil {
		apierr.New(err).WithStatus(http.StatusBadRequest).Abort(c, h.Log.Zerolog())
		return
	}
	if wasCreated {
		h.Metrics.ActiveTransfers.Set(float64(h.Registry.Len()))
	}

	if state.Storage.HasChunk(chunkIndex) {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"duplicate": true,
			"chunk":     chunkIndex,
			"received":  state.Storage.ChunkCount(),
			"total":     state.TotalChunks,
		})
		return
	}

	fileHeader, err := c.FormFile("chunk")
	if err != nil {
		apierr.New(err).WithStatus(http.StatusBadRequest).Abort(c, h.Log.Zerolog())
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		apierr.New(err).Abort(c, h.Log.Zerolog())
		return
	}
	ciphertext, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		apierr.New(err).Abort(c, h.Log.Zerolog())
		return
	}

	if err := state.Storage.StoreChunk(h.Session.AEAD, state.NonceBase, chunkIndex, ciphertext); err != nil {
		if errors.Is(err, archdropcrypto.ErrAuthenticationFailed) {
			h.Metrics.ChunkAuthFailures.Inc()
			h.Log.ChunkAuthFailed(token, 0, chunkIndex)
		}
		apierr.New(err).Abort(c, h.Log.Zerolog())
		return
	}

	processed := h.Session.IncrementChunksProcessed()
	h.Metrics.ChunksProcessed.Inc()
	if n := len(ciphertext) - config.AEADTagSize; n > 0 {
		h.Metrics.BytesTransferred.Add(float64(n))
	}
	h.Log.TransferProgress(token, processed, h.Session.Snapshot().TotalChunks)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"chunk":    chunkIndex,
		"total":    state.TotalChunks,
		"received": state.Storage.ChunkCount(),
	})
}

func (h *receiveHandlers) finalize(c *gin.Context) {
	token := c.Param("token")
	clientID := c.PostForm("clientId")
	if clientID == "" {
		clientID = c.Query("clientId")
	}
	relativePath := c.PostForm("relativePath")

	if err := h.Session.RequireActive(token, clientID); err != nil {
		apierr.Unauthorized(err).Abort(c, h.Log.Zerolog())
		return
	}

	fileID := security.HashPath(relativePath)
	state, ok := h.Registry.Remove(fileID)
	if !ok {
		apierr.New(errUnknownFile).WithStatus(http.StatusBadRequest).Abort(c, h.Log.Zerolog())
		return
	}
	h.Metrics.ActiveTransfers.Set(float64(h.Registry.Len()))

	if uint64(state.Storage.ChunkCount()) != state.TotalChunks {
		state.Storage.Abort()
		apierr.New(errIncompleteUpload).WithStatus(http.StatusBadRequest).Abort(c, h.Log.Zerolog())
		return
	}

	hash, err := state.Storage.Finalize()
	if err != nil {
		state.Storage.Abort()
		apierr.New(err).Abort(c, h.Log.Zerolog())
		return
	}
	h.Log.WithToken(token).WithFile(state.RelativePath, state.FileSize).Info("file finalized")

	c.JSON(http.StatusOK, gin.H{"success": true, "sha256": hash})
}

func (h *receiveHandlers) complete(c *gin.Context) {
	token := c.Param("token")
	clientID := c.PostForm("clientId")
	if clientID == "" {
		clientID = c.Query("clientId")
	}

	if err := h.Session.Complete(token, clientID); err != nil {
		apierr.Unauthorized(err).Abort(c, h.Log.Zerolog())
		return
	}
	h.Log.TransferCompleted(token)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "transfer complete"})
}
