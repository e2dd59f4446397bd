package server

import "errors"

var (
	errBadFileIndex     = errors.New("server: invalid file index")
	errBadChunkIndex    = errors.New("server: invalid chunk index")
	errChunkOutOfBounds = errors.New("server: chunk index out of bounds")
	errNotReceiveMode   = errors.New("server: session is not a receive session")
	errMissingNonce     = errors.New("server: the first chunk to arrive for a file must carry its nonce")
	errUnknownFile      = errors.New("server: no upload in progress for this file")
	errIncompleteUpload = errors.New("server: not all chunks received before finalize")
)
