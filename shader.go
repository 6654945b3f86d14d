package osrevk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/andewx/osrevk/hal"
)

const spirvMagic = 0x07230203

var errBadSPIRV = errors.New("not a SPIR-V module")

// ShaderSource is the asset layer's stream interface for shader binaries.
type ShaderSource interface {
	Open(name string) (io.ReadCloser, error)
}

// FSShaderSource reads shader binaries from a file system.
type FSShaderSource struct {
	FS fs.FS
}

func (s FSShaderSource) Open(name string) (io.ReadCloser, error) {
	return s.FS.Open(name)
}

// DirShaderSource reads shader binaries from a directory on disk.
func DirShaderSource(dir string) FSShaderSource {
	return FSShaderSource{FS: os.DirFS(dir)}
}

// ReadSPIRV decodes a SPIR-V binary of either byte order into words.
func ReadSPIRV(r io.Reader) ([]uint32, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a positive multiple of 4", errBadSPIRV, len(data))
	}
	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(data) == spirvMagic:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(data) == spirvMagic:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: magic %#08x", errBadSPIRV, binary.LittleEndian.Uint32(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = order.Uint32(data[i*4:])
	}
	return words, nil
}

// LoadShader reads a SPIR-V binary and creates a shader module from it.
func LoadShader(dev hal.Device, r io.Reader) (hal.ShaderModule, error) {
	code, err := ReadSPIRV(r)
	if err != nil {
		return nil, stageError(ResourceCreationError, "shader", err)
	}
	m, err := dev.CreateShaderModule(code)
	if err != nil {
		return nil, stageError(ResourceCreationError, "shader", err)
	}
	return m, nil
}

func loadShaderFile(dev hal.Device, src ShaderSource, name string) (hal.ShaderModule, error) {
	f, err := src.Open(name)
	if err != nil {
		return nil, stageError(ResourceCreationError, "shader", err)
	}
	defer f.Close()
	m, err := LoadShader(dev, f)
	if err != nil {
		return nil, stageError(ResourceCreationError, "shader", fmt.Errorf("%s: %w", name, err))
	}
	return m, nil
}
