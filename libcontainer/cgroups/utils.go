package cgroups

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultCPUPeriod is the CFS period (in usecs) used when converting a
// fractional CPU count to a quota.
const DefaultCPUPeriod uint64 = 100000

// minCPUQuota is the smallest quota the kernel accepts for cpu.cfs_quota_us.
const minCPUQuota = 1000

// ParseMemory converts a human readable memory limit such as "256M" or
// "1GB" into bytes. Suffixes are binary (K = 1024).
func ParseMemory(s string) (int64, error) {
	str := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "B")
	if str == "" {
		return 0, fmt.Errorf("invalid memory limit %q", s)
	}

	mult := int64(1)
	switch str[len(str)-1] {
	case 'K':
		mult = 1 << 10
	case 'M':
		mult = 1 << 20
	case 'G':
		mult = 1 << 30
	case 'T':
		mult = 1 << 40
	}
	if mult != 1 {
		str = str[:len(str)-1]
	}

	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory limit %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid memory limit %q: must be positive", s)
	}
	if n > math.MaxInt64/mult {
		return 0, fmt.Errorf("invalid memory limit %q: overflows int64", s)
	}
	return n * mult, nil
}

// ParseCPUs converts a fractional number of CPUs ("0.5", "2") into a CFS
// quota over DefaultCPUPeriod.
func ParseCPUs(s string) (quota int64, period uint64, err error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cpu limit %q: %w", s, err)
	}
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, 0, errors.New("invalid cpu limit " + strconv.Quote(s) + ": must be positive")
	}
	if f > math.MaxInt64/float64(DefaultCPUPeriod) {
		return 0, 0, fmt.Errorf("invalid cpu limit %q: too large", s)
	}
	quota = int64(math.Round(f * float64(DefaultCPUPeriod)))
	if quota < minCPUQuota {
		return 0, 0, fmt.Errorf("invalid cpu limit %q: below the minimum of %.2f cpus", s, float64(minCPUQuota)/float64(DefaultCPUPeriod))
	}
	return quota, DefaultCPUPeriod, nil
}
