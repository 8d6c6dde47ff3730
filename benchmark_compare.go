//go:build ignore
// +build ignore

package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	zfp "github.com/mrjoshuak/go-zfp"
)

type mode struct {
	name   string
	params zfp.Params
	args   []string // Equivalent flags of the reference zfp tool
}

func main() {
	sizes := []int{16, 32, 64, 128}
	iterations := 5

	fmt.Println("=== ZFP Benchmark Comparison ===")
	fmt.Println("Go Implementation vs zfp Reference Tool")
	fmt.Println()

	tmpDir, err := os.MkdirTemp("", "zfpbench")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer os.RemoveAll(tmpDir)

	modes := []mode{
		{"reversible", zfp.Reversible(), []string{"-R"}},
		{"rate 8", zfp.FixedRate(zfp.TypeFloat64, 3, 8), []string{"-r", "8"}},
		{"prec 24", zfp.FixedPrecision(24), []string{"-p", "24"}},
		{"acc 1e-6", zfp.FixedAccuracy(1e-6), []string{"-a", "1e-6"}},
	}

	fmt.Printf("%-10s | %-10s | %-14s | %-14s | %-8s | %-10s\n", "Size", "Mode", "Go Compress", "Ref Compress", "Ratio", "Max Error")
	fmt.Println("-----------+------------+----------------+----------------+----------+-----------")

	for _, size := range sizes {
		data := createTestField(size)
		rawPath := filepath.Join(tmpDir, fmt.Sprintf("field_%d.raw", size))
		writeRaw(rawPath, data)

		for _, m := range modes {
			goTime, ratio, maxErr := benchmarkGo(data, size, m.params, iterations)
			refTime := benchmarkReference(rawPath, size, m.args, iterations)

			fmt.Printf("%-10s | %-10s | %-14s | %-14s | %-8.2f | %-10.3g\n",
				fmt.Sprintf("%d^3", size),
				m.name,
				goTime.Round(time.Microsecond),
				refTime.Round(time.Microsecond),
				ratio,
				maxErr)
		}
	}

	// Additional detailed benchmarks
	fmt.Println()
	fmt.Println("=== Detailed Component Benchmarks (Go) ===")
	runDetailedBenchmarks()
}

func createTestField(size int) []float64 {
	data := make([]float64, size*size*size)
	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				fx := float64(x) / float64(size)
				fy := float64(y) / float64(size)
				fz := float64(z) / float64(size)
				data[x+size*(y+size*z)] = math.Sin(6*fx) * math.Cos(4*fy) * math.Exp(-fz)
			}
		}
	}
	return data
}

func writeRaw(path string, data []float64) {
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	os.WriteFile(path, buf, 0644)
}

func benchmarkGo(data []float64, size int, p zfp.Params, iterations int) (time.Duration, float64, float64) {
	shape := []int{size, size, size}
	opts := &zfp.Options{Params: p}

	// Warmup
	a, err := zfp.Compress(data, shape, opts)
	if err != nil {
		fmt.Printf("Compress failed: %v\n", err)
		return 0, 0, 0
	}

	start := time.Now()
	for i := 0; i < iterations; i++ {
		zfp.Compress(data, shape, opts)
	}
	elapsed := time.Since(start) / time.Duration(iterations)

	out := make([]float64, len(data))
	zfp.Decompress(a, out)
	maxErr := 0.0
	for i := range data {
		maxErr = math.Max(maxErr, math.Abs(out[i]-data[i]))
	}
	ratio := float64(8*len(data)) / float64(a.CompressedSize())
	return elapsed, ratio, maxErr
}

func benchmarkReference(rawPath string, size int, args []string, iterations int) time.Duration {
	n := strconv.Itoa(size)
	zPath := rawPath + ".zfp"
	cmdArgs := append([]string{"-i", rawPath, "-z", zPath, "-d", "-3", n, n, n}, args...)

	// Warmup
	if err := exec.Command("zfp", cmdArgs...).Run(); err != nil {
		return 0
	}

	start := time.Now()
	for i := 0; i < iterations; i++ {
		exec.Command("zfp", cmdArgs...).Run()
	}
	return time.Since(start) / time.Duration(iterations)
}

func runDetailedBenchmarks() {
	fmt.Println()
	cmd := exec.Command("go", "test", "-bench=.", "-benchtime=1s", "./...")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Run()
}
