package player

import (
	"io"
)

// produce drains src into dst in fixed-size blocks: every block but the
// last carries exactly blockSize bytes, the last carries the remainder.
// The destination is closed when the source is exhausted, which is the
// end-of-stream signal for the consumer. Returns the number of blocks
// and bytes delivered.
func produce(src io.Reader, dst io.WriteCloser, blockSize int) (int, int64, error) {
	defer dst.Close()

	var (
		blocks int
		total  int64
	)
	buf := make([]byte, blockSize)

	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return blocks, total, werr
			}
			blocks++
			total += int64(n)
			metricBlocksDelivered.Inc()
			metricBytesDelivered.Add(float64(n))
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return blocks, total, nil
		}
		if err != nil {
			return blocks, total, err
		}
	}
}
