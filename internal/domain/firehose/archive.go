package firehose

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-car/v2"
)

// ExtractBlock returns the data of the block addressed by want inside a CAR
// slice. The archive is streamed and reading stops at the first match, so
// blocks after it are never decoded. Block data is hashed against its CID
// while reading, so the returned bytes always belong to want.
func ExtractBlock(blocks []byte, want cid.Cid) ([]byte, error) {
	br, err := car.NewBlockReader(bytes.NewReader(blocks), car.WithTrustedCAR(false))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveDecode, err)
	}

	for {
		blk, err := br.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, want)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArchiveDecode, err)
		}
		if blk.Cid().Equals(want) {
			return blk.RawData(), nil
		}
	}
}
