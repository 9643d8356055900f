package tokenizer

import (
	"errors"
	"io"
	"os"

	"github.com/tyemirov/ctree/internal/utils"
)

// MaxCountedFileSize bounds the files read for token counting.
const MaxCountedFileSize = 8 << 20

var errNilCounter = errors.New("nil tokenizer counter")

// CountResult captures the outcome of counting a file or byte slice.
type CountResult struct {
	Tokens  int
	Counted bool
}

// CountBytes estimates tokens for data. Binary data is not counted.
func CountBytes(counter Counter, data []byte) (CountResult, error) {
	if counter == nil {
		return CountResult{}, errNilCounter
	}
	if utils.IsBinary(data) {
		return CountResult{}, nil
	}
	tokens, err := counter.CountString(string(data))
	if err != nil {
		return CountResult{}, err
	}
	return CountResult{Tokens: tokens, Counted: true}, nil
}

// CountFile reads the file at path and estimates its token count. Files larger
// than MaxCountedFileSize are reported as not counted.
func CountFile(counter Counter, path string) (CountResult, error) {
	if counter == nil {
		return CountResult{}, errNilCounter
	}
	// #nosec G304
	fileHandle, openErr := os.Open(path)
	if openErr != nil {
		return CountResult{}, openErr
	}
	defer fileHandle.Close()

	data, readErr := io.ReadAll(io.LimitReader(fileHandle, MaxCountedFileSize+1))
	if readErr != nil {
		return CountResult{}, readErr
	}
	if len(data) > MaxCountedFileSize {
		return CountResult{}, nil
	}
	return CountBytes(counter, data)
}
