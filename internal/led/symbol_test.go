package led

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestEncodeChannelVectors(t *testing.T) {
	assert.Equal(t, BlackPattern[:], EncodeChannel(0x00, DefaultSymbol))
	assert.Equal(t, []byte{0x92, 0x49, 0x24}, EncodeChannel(0x00, DefaultSymbol))
	assert.Equal(t, []byte{0xDB, 0x6D, 0xB6}, EncodeChannel(0xFF, DefaultSymbol))
	// 0xA5 = 1010 0101 -> 110 100 110 100 100 110 100 110
	assert.Equal(t, []byte{0xD3, 0x49, 0xA6}, EncodeChannel(0xA5, DefaultSymbol))
}

func TestEncodeChannelRoundTrip(t *testing.T) {
	for _, sym := range []Symbol{DefaultSymbol, {Width: 4, ZeroHigh: 1, OneHigh: 3}, {Width: 5, ZeroHigh: 2, OneHigh: 3}} {
		for v := 0; v < 256; v++ {
			enc := EncodeChannel(uint8(v), sym)
			require.Len(t, enc, int(sym.Width), "width %d value %d", sym.Width, v)
			assert.Equal(t, enc, EncodeChannel(uint8(v), sym), "encoding must be stable")
			got, err := DecodeChannel(enc, sym)
			require.NoError(t, err)
			require.Equal(t, uint8(v), got)
		}
	}
}

func TestEncodeChannelToOverwrites(t *testing.T) {
	dst := []byte{0xFF, 0xFF, 0xFF, 0x55}
	EncodeChannelTo(dst, 0x00, DefaultSymbol)
	assert.Equal(t, []byte{0x92, 0x49, 0x24, 0x55}, dst)
}

func TestDecodeChannelRejects(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"reset bytes", []byte{0x00, 0x00, 0x00}},
		{"all high", []byte{0xFF, 0xFF, 0xFF}},
		{"pulse restarts", []byte{0xB2, 0x49, 0x24}},
		{"short", []byte{0x92, 0x49}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeChannel(tt.in, DefaultSymbol)
			assert.ErrorIs(t, err, ErrMalformedSymbol)
		})
	}
}

func TestSymbolValidate(t *testing.T) {
	tests := []struct {
		sym     Symbol
		wantErr bool
	}{
		{DefaultSymbol, false},
		{Symbol{Width: 4, ZeroHigh: 1, OneHigh: 3}, false},
		{Symbol{Width: 2, ZeroHigh: 1, OneHigh: 1}, true},
		{Symbol{Width: 3, ZeroHigh: 0, OneHigh: 2}, true},
		{Symbol{Width: 3, ZeroHigh: 2, OneHigh: 2}, true},
		{Symbol{Width: 3, ZeroHigh: 1, OneHigh: 3}, true},
		{Symbol{Width: 17, ZeroHigh: 5, OneHigh: 10}, true},
	}
	for i, tt := range tests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			err := tt.sym.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTimingSymbol(t *testing.T) {
	tests := []struct {
		name    string
		rate    physic.Frequency
		width   uint8
		want    Symbol
		wantErr bool
	}{
		{"2.4MHz", 2400 * physic.KiloHertz, 0, DefaultSymbol, false},
		{"3.2MHz", 3200 * physic.KiloHertz, 0, Symbol{Width: 4, ZeroHigh: 1, OneHigh: 3}, false},
		{"2MHz T1H too long", 2 * physic.MegaHertz, 0, Symbol{}, true},
		{"800kHz too slow", 800 * physic.KiloHertz, 0, Symbol{}, true},
		{"zero", 0, 0, Symbol{}, true},
		{"3.2MHz fixed width 4", 3200 * physic.KiloHertz, 4, Symbol{Width: 4, ZeroHigh: 1, OneHigh: 3}, false},
		{"2.4MHz fixed width 4", 2400 * physic.KiloHertz, 4, Symbol{Width: 4, ZeroHigh: 1, OneHigh: 2}, false},
		{"8MHz fixed width 3", 8 * physic.MegaHertz, 3, Symbol{}, true},
		{"fixed width too wide", 2400 * physic.KiloHertz, 17, Symbol{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Timing{Rate: tt.rate, Width: tt.width}.Symbol()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResetBytes(t *testing.T) {
	assert.Equal(t, 90, ResetBytes(2400*physic.KiloHertz, ResetLow))
	assert.Equal(t, 84, ResetBytes(2400*physic.KiloHertz, 280*time.Microsecond))
	assert.Equal(t, 120, ResetBytes(3200*physic.KiloHertz, ResetLow))
	assert.Equal(t, 1, ResetBytes(physic.MegaHertz, time.Nanosecond))
	assert.Zero(t, ResetBytes(0, ResetLow))
}
