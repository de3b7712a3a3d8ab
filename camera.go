// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vhs

import (
	"fmt"

	"github.com/gogpu/vhs/internal/temporal"
)

// CameraID identifies a camera across frames. The host picks the values.
type CameraID = temporal.CameraID

// CameraType is the kind of camera a frame was rendered for.
type CameraType uint8

const (
	// CameraGame is a regular in-game camera.
	CameraGame CameraType = iota

	// CameraSceneView is an editor scene view.
	CameraSceneView

	// CameraPreview renders asset previews. Always skipped.
	CameraPreview

	// CameraReflection renders reflection probes. Always skipped.
	CameraReflection
)

func (t CameraType) String() string {
	switch t {
	case CameraGame:
		return "game"
	case CameraSceneView:
		return "sceneview"
	case CameraPreview:
		return "preview"
	case CameraReflection:
		return "reflection"
	}
	return fmt.Sprintf("CameraType(%d)", uint8(t))
}

// Processed reports whether the effect runs for cameras of this type.
func (t CameraType) Processed() bool {
	return t == CameraGame || t == CameraSceneView
}

// Camera is the camera a frame belongs to.
type Camera struct {
	ID   CameraID
	Type CameraType
}

// StateStore holds per-camera temporal state. Effects sharing a store see
// the same noise phase for a camera.
type StateStore = temporal.Store

// NewStateStore returns an empty store.
func NewStateStore() *StateStore { return temporal.NewStore() }
