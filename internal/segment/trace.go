package segment

import "gonum.org/v1/gonum/spatial/r2"

// Moore neighbourhood in clockwise order for a y-down grid:
// E, SE, S, SW, W, NW, N, NE.
var (
	mooreDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	mooreDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

func mooreIndex(dx, dy int) int {
	for i := range mooreDX {
		if mooreDX[i] == dx && mooreDY[i] == dy {
			return i
		}
	}
	return 0
}

// traceMoore returns the outer boundary of the set pixels in mask as pixel
// centres, with collinear runs collapsed. The mask is expected to hold a
// single 8-connected component.
func traceMoore(mask []bool, w, h int) []r2.Vec {
	set := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && mask[y*w+x]
	}

	// The first set pixel in raster order is on the outer boundary and its
	// west neighbour is background.
	sx, sy := -1, -1
	for i, on := range mask {
		if on {
			sx, sy = i%w, i/w
			break
		}
	}
	if sx < 0 {
		return nil
	}

	var pts []r2.Vec
	add := func(x, y int) {
		p := r2.Vec{X: float64(x) + 0.5, Y: float64(y) + 0.5}
		if n := len(pts); n >= 2 {
			a, b := pts[n-2], pts[n-1]
			if r2.Cross(r2.Sub(b, a), r2.Sub(p, b)) == 0 {
				pts = pts[:n-1]
			}
		}
		pts = append(pts, p)
	}
	add(sx, sy)

	cx, cy := sx, sy
	bx, by := sx-1, sy
	startBX, startBY := bx, by
	maxSteps := 4*w*h + 8

	for step := 0; step < maxSteps; step++ {
		first := (mooreIndex(bx-cx, by-cy) + 1) % 8
		found := false
		px, py := bx, by
		for k := 0; k < 8; k++ {
			i := (first + k) % 8
			tx, ty := cx+mooreDX[i], cy+mooreDY[i]
			if set(tx, ty) {
				bx, by = px, py
				cx, cy = tx, ty
				found = true
				break
			}
			px, py = tx, ty
		}
		if !found {
			// Isolated pixel.
			break
		}
		if cx == sx && cy == sy && bx == startBX && by == startBY {
			break
		}
		add(cx, cy)
	}

	// Drop a trailing vertex that duplicates the start or lies on the
	// closing edge.
	for len(pts) >= 3 {
		n := len(pts)
		if r2.Cross(r2.Sub(pts[n-1], pts[n-2]), r2.Sub(pts[0], pts[n-1])) != 0 {
			break
		}
		pts = pts[:n-1]
	}
	return pts
}
