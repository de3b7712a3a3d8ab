// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// The effect RECEIVES the device from the host, it does NOT create one, so
// its textures live on the same device as the camera color buffers it reads.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider.
type DeviceHandle = gpucontext.DeviceProvider

// AddressMode selects how samples outside [0, 1] are resolved.
type AddressMode uint8

const (
	// AddressClamp clamps coordinates to the edge texel.
	AddressClamp AddressMode = iota

	// AddressRepeat wraps coordinates. Used for tiling noise and grain.
	AddressRepeat
)

// String returns the mode name.
func (m AddressMode) String() string {
	if m == AddressRepeat {
		return "repeat"
	}
	return "clamp"
}

// TextureDescriptor describes parameters for creating a texture.
type TextureDescriptor struct {
	// Label is an optional debug label for the texture.
	Label string

	// Width is the texture width in pixels.
	Width uint32

	// Height is the texture height in pixels.
	Height uint32

	// Format is the texture pixel format.
	Format gputypes.TextureFormat

	// Usage specifies how the texture will be used.
	Usage TextureUsage

	// Address is the sampling address mode used when the texture is bound
	// as a shader input.
	Address AddressMode
}

// TextureUsage specifies how a texture can be used.
// These flags can be combined with bitwise OR.
type TextureUsage uint32

const (
	// TextureUsageCopySrc allows the texture to be used as a copy source.
	TextureUsageCopySrc TextureUsage = 1 << iota

	// TextureUsageCopyDst allows the texture to be used as a copy destination.
	TextureUsageCopyDst

	// TextureUsageTextureBinding allows the texture to be sampled.
	TextureUsageTextureBinding

	// TextureUsageRenderAttachment allows the texture to be drawn into.
	TextureUsageRenderAttachment
)

// Has reports whether all bits of f are set.
func (u TextureUsage) Has(f TextureUsage) bool { return u&f == f }

// Texture is a backend texture. Only the backend that created a texture can
// bind or destroy it.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() uint32

	// Height returns the texture height in pixels.
	Height() uint32

	// Format returns the texture pixel format.
	Format() gputypes.TextureFormat

	// Label returns the debug label.
	Label() string
}

// Formats used by the pipeline.
const (
	// FormatColor is the host color format for frames and static assets.
	FormatColor = gputypes.TextureFormatRGBA8Unorm

	// FormatIntermediate holds the blur pyramid and smear buffers.
	FormatIntermediate = gputypes.TextureFormatRGBA16Float

	// FormatNoise is the signed single-channel stripe-noise target.
	FormatNoise = gputypes.TextureFormatR8Snorm
)

// DefaultTextureDescriptor returns a descriptor for a transient render
// target. Only Width, Height, and Format need to be set.
func DefaultTextureDescriptor(width, height uint32, format gputypes.TextureFormat) TextureDescriptor {
	return TextureDescriptor{
		Width:  width,
		Height: height,
		Format: format,
		Usage:  TextureUsageTextureBinding | TextureUsageRenderAttachment,
	}
}

// AssetTextureDescriptor returns a descriptor for a static, sampled-only
// texture uploaded once from the CPU.
func AssetTextureDescriptor(label string, width, height uint32, address AddressMode) TextureDescriptor {
	return TextureDescriptor{
		Label:   label,
		Width:   width,
		Height:  height,
		Format:  FormatColor,
		Usage:   TextureUsageTextureBinding | TextureUsageCopyDst,
		Address: address,
	}
}

// NullDeviceHandle is a DeviceHandle that provides nil implementations.
// Used for CPU-only rendering where no GPU is available.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo returns zero adapter information for the null device.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{}
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}
