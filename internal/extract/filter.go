package extract

// FilterImages drops images strictly smaller than minSizeBytes, then
// truncates the remainder to maxCount, preserving original order.
// Tiny embedded images (icons, rules, bullets) are unlikely to carry text.
func FilterImages(images [][]byte, minSizeBytes, maxCount int) [][]byte {
	if maxCount <= 0 {
		return nil
	}
	eligible := make([][]byte, 0, len(images))
	for _, img := range images {
		if len(img) < minSizeBytes {
			continue
		}
		eligible = append(eligible, img)
		if len(eligible) == maxCount {
			break
		}
	}
	return eligible
}
