// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface provides software render targets for flow.
//
// ImageSurface is a flow.Canvas over an *image.RGBA. It fills paths with
// golang.org/x/image/vector, blits and resamples images with
// golang.org/x/image/draw, keeps clips as alpha masks, blurs filtered save
// layers and draws elevation shadows from flow.ShadowParams.
//
// Producer implements sceneupdate.SurfaceProducer on top of ImageSurface,
// recycling surfaces by size and keeping retained frames alive while their
// nodes are reused.
//
// # Registry
//
// Backends register a Factory by name; the rasterizer picks its target
// with New. The software backend is registered as "image":
//
//	s, err := surface.New("image", 800, 600)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	s.Clear(color.White)
//	s.DrawRRect(flow.RRectFromRectXY(flow.MakeXYWH(100, 100, 200, 120), 16, 16), flow.Fill(red))
//	img := s.Snapshot()
package surface
