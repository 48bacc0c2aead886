package stackalloc

import (
	"os"

	"github.com/BurntSushi/toml"
)

// chunksPerStack is the fixed capacity, in chunks, of every bitmapped stack
// regardless of size category. It is not configurable: the occupancy bitmap
// is a single uint64, one bit per chunk.
const chunksPerStack = 64

// blockAlign is the alignment of blocks returned by a BlockSource.
const blockAlign = 4096

// Config holds the chunk size of every category and the byte boundaries
// that classify a requested size into one. It can be built with
// DefaultConfig or loaded from a TOML document with LoadConfig.
type Config struct {
	VerySmallChunkSize uintptr `toml:"very_small_chunk_size"`
	SmallChunkSize     uintptr `toml:"small_chunk_size"`
	MediumChunkSize    uintptr `toml:"medium_chunk_size"`
	LargeChunkSize     uintptr `toml:"large_chunk_size"`
	VeryLargeChunkSize uintptr `toml:"very_large_chunk_size"`
	MetadataChunkSize  uintptr `toml:"metadata_chunk_size"`

	// Upper bounds are exclusive except VeryLargeMax, which is inclusive
	// (it is also the block size handed out by a BlockSource).
	VerySmallMax uintptr `toml:"very_small_max"`
	SmallMax     uintptr `toml:"small_max"`
	MediumMax    uintptr `toml:"medium_max"`
	LargeMax     uintptr `toml:"large_max"`
	VeryLargeMax uintptr `toml:"very_large_max"`
}

// DefaultConfig reproduces the category table: very small 1-7 bytes (1 byte
// chunks), small 8-63 (8 byte chunks), medium 64-511 (64 byte chunks), large
// 512-4095 (512 byte chunks), very large 4096-262144 (4096 byte chunks).
// Metadata headers are stored in their own 64-byte-chunked chain.
func DefaultConfig() Config {
	return Config{
		VerySmallChunkSize: 1,
		SmallChunkSize:     8,
		MediumChunkSize:    64,
		LargeChunkSize:     512,
		VeryLargeChunkSize: 4096,
		MetadataChunkSize:  64,

		VerySmallMax: 8,
		SmallMax:     64,
		MediumMax:    512,
		LargeMax:     4096,
		VeryLargeMax: 262144,
	}
}

// LoadConfig reads a TOML document overriding any subset of DefaultConfig's
// fields. Fields absent from the document keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// blockSize is the size, in bytes, of a block handed out by a BlockSource:
// exactly large enough for one very-large stack.
func (c Config) blockSize() uintptr {
	return uintptr(chunksPerStack) * c.VeryLargeChunkSize
}

func (c Config) classify(size uintptr) sizeCategory {
	switch {
	case size == 0:
		return categoryNone
	case size < c.VerySmallMax:
		return categoryVerySmall
	case size < c.SmallMax:
		return categorySmall
	case size < c.MediumMax:
		return categoryMedium
	case size < c.LargeMax:
		return categoryLarge
	case size <= c.VeryLargeMax:
		return categoryVeryLarge
	default:
		return categoryNone
	}
}

func (c Config) chunkSize(cat sizeCategory) uintptr {
	switch cat {
	case categoryVerySmall:
		return c.VerySmallChunkSize
	case categorySmall:
		return c.SmallChunkSize
	case categoryMedium:
		return c.MediumChunkSize
	case categoryLarge:
		return c.LargeChunkSize
	case categoryVeryLarge:
		return c.VeryLargeChunkSize
	case categoryMetadata:
		return c.MetadataChunkSize
	default:
		return 0
	}
}

// parent returns the category a chain in cat carves its own stacks from.
// categoryVeryLarge and categoryMetadata are special-cased by the router
// instead of using this (very large draws from the BlockSource directly;
// metadata's bootstrap avoids a dependency on itself).
func (c Config) parent(cat sizeCategory) sizeCategory {
	switch cat {
	case categoryVerySmall:
		return categoryMedium
	case categorySmall:
		return categoryLarge
	case categoryMedium, categoryLarge, categoryMetadata:
		return categoryVeryLarge
	default:
		return categoryNone
	}
}
