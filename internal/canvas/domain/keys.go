package domain

import "fmt"

// Storage keys are content-addressed by logical coordinates, not hashed:
// tiles live under {canvasId}/{z}/{x}/{y}.jpg, OGP previews at {canvasId}.png.

// TileStorageKey returns the blob key for one tile.
func TileStorageKey(canvasID string, z, x, y int) string {
	return fmt.Sprintf("%s/%d/%d/%d.jpg", canvasID, z, x, y)
}

// OGPStorageKey returns the blob key for a canvas's Open Graph preview image.
func OGPStorageKey(canvasID string) string {
	return canvasID + ".png"
}
