package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/diskdevmgr/ddm/ddmerrors"
)

var sizeExp = regexp.MustCompile(`^([0-9]*(\.)?[0-9]*)([bkmgtp]{1}(b|ib){0,1}){0,1}$`)

type sizeUnit struct {
	unit      string
	mask      float64
	precision int
}

var (
	sizeUnitsXB = []sizeUnit{
		{"PB", 1e15, 5},
		{"TB", 1e12, 4},
		{"GB", 1e9, 3},
		{"MB", 1e6, 2},
		{"KB", 1e3, 1},
		{"B", 1, 0},
	}
	sizeUnitsXiB = []sizeUnit{
		{"PiB", math.Exp2(50), 5},
		{"TiB", math.Exp2(40), 4},
		{"GiB", math.Exp2(30), 3},
		{"MiB", math.Exp2(20), 2},
		{"KiB", math.Exp2(10), 1},
		{"B", 1, 0},
	}
)

func humanReadableSize(units []sizeUnit, size uint64, unit string, precision int) (string, error) {
	unit = strings.ToUpper(unit)
	unit = strings.ReplaceAll(unit, "I", "i")

	if size == 0 {
		return "0", nil
	}

	value := float64(size)
	for _, curr := range units {
		csize := value / curr.mask

		if unit == "" {
			if csize < 1.0 {
				continue
			}
		} else if unit != curr.unit {
			continue
		}

		unit = curr.unit
		if precision < 0 {
			precision = curr.precision
		}

		formatted := strconv.FormatFloat(csize, 'f', precision, 64)
		formatted = strings.TrimRight(strings.TrimRight(formatted, "0"), ".")
		if unit != "" && unit != "B" {
			formatted += unit
		}

		return formatted, nil
	}

	return "", ddmerrors.ValidationErrorf("could not format size %d", size)
}

// HumanReadableSizeXB renders size in the closest decimal unit (MB, GB, ...).
func HumanReadableSizeXB(size uint64) (string, error) {
	return humanReadableSize(sizeUnitsXB, size, "", -1)
}

// HumanReadableSizeXiB renders size in the closest binary unit (MiB, GiB, ...).
func HumanReadableSizeXiB(size uint64) (string, error) {
	return humanReadableSize(sizeUnitsXiB, size, "", -1)
}

// HumanReadableSizeXBWithUnit forces the decimal unit used.
func HumanReadableSizeXBWithUnit(size uint64, unit string) (string, error) {
	return humanReadableSize(sizeUnitsXB, size, unit, -1)
}

// ParseVolumeSize parses a string like "1M", "10GiB", "2TB" into bytes.
// Every unit is a power of two, with or without a "B"/"iB" suffix:
// "1k", "1kb" and "1kib" all parse to 1024.
func ParseVolumeSize(str string) (uint64, error) {
	str = strings.ToLower(strings.TrimSpace(str))

	if !sizeExp.MatchString(str) {
		v, err := strconv.ParseUint(str, 0, 64)
		if err != nil {
			return 0, ddmerrors.Wrap(err)
		}
		return v, nil
	}

	unit := sizeExp.ReplaceAllString(str, `$3`)
	fsize, err := strconv.ParseFloat(sizeExp.ReplaceAllString(str, `$1`), 64)
	if err != nil {
		return 0, ddmerrors.Wrap(err)
	}

	switch unit {
	case "b", "":
		// no-op, already bytes
	case "k", "kb", "kib":
		fsize *= math.Exp2(10)
	case "m", "mb", "mib":
		fsize *= math.Exp2(20)
	case "g", "gb", "gib":
		fsize *= math.Exp2(30)
	case "t", "tb", "tib":
		fsize *= math.Exp2(40)
	case "p", "pb", "pib":
		fsize *= math.Exp2(50)
	default:
		return 0, ddmerrors.New(ddmerrors.BadValue, "unrecognized size unit in %q", str)
	}

	return uint64(math.Round(fsize)), nil
}

// MaxLabelLength returns the maximum label length for fstype, or 11
// for a type it does not know.
func MaxLabelLength(fstype string) int {
	switch fstype {
	case "ext2", "ext3", "ext4":
		return 16
	case "swap":
		return 15
	case "xfs":
		return 12
	case "f2fs":
		return 512
	case "btrfs":
		return 255
	case "vfat":
		return 11
	default:
		return 11
	}
}

// FormatBytes is a convenience wrapper returning a decimal
// human-readable size or a fallback string on error.
func FormatBytes(size uint64) string {
	s, err := HumanReadableSizeXB(size)
	if err != nil {
		return fmt.Sprintf("%d", size)
	}
	return s
}
