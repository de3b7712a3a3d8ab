// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"reflect"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestNullDeviceHandle(t *testing.T) {
	var handle DeviceHandle = NullDeviceHandle{}

	if handle.Device() != nil {
		t.Error("NullDeviceHandle.Device() should return nil")
	}
	if handle.Queue() != nil {
		t.Error("NullDeviceHandle.Queue() should return nil")
	}
	if handle.Adapter() != nil {
		t.Error("NullDeviceHandle.Adapter() should return nil")
	}
	if handle.SurfaceFormat() != gputypes.TextureFormatUndefined {
		t.Error("NullDeviceHandle.SurfaceFormat() should return Undefined")
	}
	if info := handle.AdapterInfo(); !reflect.ValueOf(info).IsZero() {
		t.Errorf("NullDeviceHandle.AdapterInfo() = %+v, want zero value", info)
	}
}

func TestTextureDescriptorDefault(t *testing.T) {
	desc := DefaultTextureDescriptor(256, 128, FormatIntermediate)

	if desc.Width != 256 {
		t.Errorf("Width = %d, want 256", desc.Width)
	}
	if desc.Height != 128 {
		t.Errorf("Height = %d, want 128", desc.Height)
	}
	if desc.Format != FormatIntermediate {
		t.Errorf("Format = %v, want RGBA16Float", desc.Format)
	}
	if desc.Address != AddressClamp {
		t.Errorf("Address = %v, want clamp", desc.Address)
	}

	want := TextureUsageTextureBinding | TextureUsageRenderAttachment
	if desc.Usage != want {
		t.Errorf("Usage = %v, want %v", desc.Usage, want)
	}
}

func TestAssetTextureDescriptor(t *testing.T) {
	desc := AssetTextureDescriptor("grain", 64, 32, AddressRepeat)
	if desc.Format != FormatColor {
		t.Errorf("Format = %v, want RGBA8Unorm", desc.Format)
	}
	if !desc.Usage.Has(TextureUsageCopyDst) {
		t.Error("asset texture is not a copy destination")
	}
	if desc.Usage.Has(TextureUsageRenderAttachment) {
		t.Error("asset texture should not be a render attachment")
	}
	if desc.Address.String() != "repeat" {
		t.Errorf("Address = %v, want repeat", desc.Address)
	}
}

func TestTextureUsageHas(t *testing.T) {
	usage := TextureUsageCopySrc | TextureUsageRenderAttachment
	tests := []struct {
		flag TextureUsage
		want bool
	}{
		{TextureUsageCopySrc, true},
		{TextureUsageRenderAttachment, true},
		{TextureUsageCopyDst, false},
		{TextureUsageCopySrc | TextureUsageCopyDst, false},
	}
	for _, tt := range tests {
		if got := usage.Has(tt.flag); got != tt.want {
			t.Errorf("Has(%v) = %v, want %v", tt.flag, got, tt.want)
		}
	}
}
