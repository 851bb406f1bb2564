// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"image/color"
	"slices"

	"github.com/gogpu/flow"
	"github.com/gogpu/flow/sceneupdate"
)

// shadowColor is the colour of shadows cast by elevated scene shapes.
var shadowColor = color.NRGBA{A: 0xff}

// Compose draws a presented scene onto canvas, standing in for a platform
// compositor. Sibling entities are drawn in order of increasing elevation.
// Shapes cast a shadow for their entity's elevation and show their texture
// when it was painted, or their colour otherwise.
func Compose(canvas flow.Canvas, root *sceneupdate.EntityNode, dpr float64) {
	if canvas == nil || root == nil {
		return
	}
	if dpr <= 0 {
		dpr = 1
	}
	composeEntity(canvas, root, dpr)
}

func composeEntity(canvas flow.Canvas, n *sceneupdate.EntityNode, dpr float64) {
	count := canvas.Save()
	defer canvas.RestoreToCount(count)

	canvas.Translate(n.Translation[0], n.Translation[1])
	if n.Rotation != 0 {
		canvas.Rotate(n.Rotation)
	}
	if n.Scale != [2]float64{1, 1} {
		canvas.Scale(n.Scale[0], n.Scale[1])
	}
	children := n.Children()
	// The shadow falls outside the entity's clip.
	if elevation := -n.Translation[2]; elevation > 0 {
		for _, child := range children {
			if s, ok := child.(*sceneupdate.ShapeNode); ok && !s.Shape.IsEmpty() {
				canvas.DrawShadow(flow.PathFromRRect(s.Shape), shadowColor, elevation, s.Color.A != 0xff, dpr)
			}
		}
	}
	if n.Clip != nil {
		canvas.ClipRect(*n.Clip, flow.ClipIntersect, true)
	}

	// Z grows away from the viewer, so higher values are drawn first.
	slices.SortStableFunc(children, func(a, b sceneupdate.Node) int {
		za, zb := nodeZ(a), nodeZ(b)
		switch {
		case za > zb:
			return -1
		case za < zb:
			return 1
		}
		return 0
	})

	for _, child := range children {
		switch c := child.(type) {
		case *sceneupdate.EntityNode:
			composeEntity(canvas, c, dpr)
		case *sceneupdate.ShapeNode:
			composeShape(canvas, c)
		}
	}
}

func nodeZ(n sceneupdate.Node) float64 {
	if e, ok := n.(*sceneupdate.EntityNode); ok {
		return e.Translation[2]
	}
	return 0
}

// imageSource is implemented by surfaces whose pixels can be read back.
type imageSource interface {
	Image() *image.RGBA
}

func composeShape(canvas flow.Canvas, n *sceneupdate.ShapeNode) {
	rr := n.Shape
	if rr.IsEmpty() {
		return
	}

	src, ok := n.Texture.(imageSource)
	if !ok {
		canvas.DrawRRect(rr, flow.Fill(n.Color))
		return
	}
	img := src.Image()
	size := img.Bounds().Size()
	if size.X == 0 || size.Y == 0 {
		return
	}

	count := canvas.Save()
	defer canvas.RestoreToCount(count)
	canvas.ClipRRect(rr, flow.ClipIntersect, true)
	canvas.Translate(rr.Rect.Left, rr.Rect.Top)
	canvas.Scale(rr.Rect.Width()/float64(size.X), rr.Rect.Height()/float64(size.Y))
	canvas.DrawImage(img, flow.Point{}, &flow.Paint{AntiAlias: true})
}
