// Package kfmt provides the minimal formatted-output support used by the
// kernel side of minos: a printf subset that streams bytes to an io.Writer
// without buffering whole lines, an early boot ring buffer that captures
// output produced before the console comes up, and a prefix writer used by
// the boot log.
package kfmt

import "io"

// maxBufSize defines the buffer size for formatting numbers.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")
	nullValue       = []byte("(null)")

	// earlyPrintBuffer stores Printf output emitted before a sink is
	// registered via SetOutputSink.
	earlyPrintBuffer ringBuffer

	// outputSink is the io.Writer where Printf sends its output. While nil,
	// output is redirected to the earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the target for calls to Printf to w and drains any data
// accumulated in the early print buffer into it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the currently registered output sink. It returns the
// early print buffer while no sink is registered so that callers building
// writers on top of the sink still capture boot output.
func GetOutputSink() io.Writer {
	if outputSink == nil {
		return &earlyPrintBuffer
	}
	return outputSink
}

// Printf formats its arguments and writes them to the registered output sink.
// See Fprintf for the supported verbs.
func Printf(format string, args ...interface{}) {
	Fprintf(GetOutputSink(), format, args...)
}

// Fprintf provides a minimal fmt.Fprintf alternative whose output is streamed
// byte-by-byte to w, making it usable inside the console output path itself.
//
// The following verbs are supported:
//
//	%s  string, []byte or *string; a nil *string renders as "(null)"
//	%d  base-10 integer
//	%o  base-8 integer
//	%x  base-16 integer, lower-case
//	%p  pointer-sized value as 0x-prefixed hex
//	%t  "true" or "false"
//	%%  literal percent sign
//
// An optional decimal width may precede the verb; base-10 values are padded
// with spaces, base-8 and base-16 values with zeroes. Any unrecognized verb is
// echoed verbatim together with its percent sign so that formatting bugs
// surface in the output instead of vanishing.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		buf          [1]byte
		padLen       int
		nextArgIndex int
	)

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			buf[0] = format[i]
			w.Write(buf[:])
			continue
		}

		padLen = 0
		i++
		for ; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			padLen = (padLen * 10) + int(format[i]-'0')
		}

		if i >= len(format) {
			buf[0] = '%'
			w.Write(buf[:])
			break
		}

		switch verb := format[i]; verb {
		case '%':
			buf[0] = '%'
			w.Write(buf[:])
		case 'd', 'o', 'x', 'p', 's', 't':
			if nextArgIndex >= len(args) {
				w.Write(errMissingArg)
				continue
			}

			arg := args[nextArgIndex]
			nextArgIndex++

			switch verb {
			case 'o':
				fmtInt(w, arg, 8, padLen)
			case 'd':
				fmtInt(w, arg, 10, padLen)
			case 'x':
				fmtInt(w, arg, 16, padLen)
			case 'p':
				fmtPointer(w, arg)
			case 's':
				fmtString(w, arg, padLen)
			case 't':
				fmtBool(w, arg)
			}
		default:
			buf[0] = '%'
			w.Write(buf[:])
			buf[0] = verb
			w.Write(buf[:])
		}
	}

	// Check for unused args
	for ; nextArgIndex < len(args); nextArgIndex++ {
		w.Write(errExtraArg)
	}
}

// fmtBool prints a formatted version of boolean value v.
func fmtBool(w io.Writer, v interface{}) {
	switch bVal := v.(type) {
	case bool:
		if bVal {
			w.Write(trueValue)
		} else {
			w.Write(falseValue)
		}
	default:
		w.Write(errWrongArgType)
	}
}

// fmtString prints a formatted version of a string-ish value v, applying the
// padding specified by padLen. A nil *string renders as "(null)" instead of
// faulting.
func fmtString(w io.Writer, v interface{}, padLen int) {
	switch sVal := v.(type) {
	case string:
		fmtRepeat(w, ' ', padLen-len(sVal))
		writeString(w, sVal)
	case []byte:
		fmtRepeat(w, ' ', padLen-len(sVal))
		w.Write(sVal)
	case *string:
		if sVal == nil {
			w.Write(nullValue)
			return
		}
		fmtRepeat(w, ' ', padLen-len(*sVal))
		writeString(w, *sVal)
	default:
		w.Write(errWrongArgType)
	}
}

// fmtPointer prints a pointer-sized value as 0x-prefixed lower-case hex.
func fmtPointer(w io.Writer, v interface{}) {
	var buf = [2]byte{'0', 'x'}

	switch pVal := v.(type) {
	case uintptr:
		w.Write(buf[:])
		fmtInt(w, uint64(pVal), 16, 0)
	case uint64:
		w.Write(buf[:])
		fmtInt(w, pVal, 16, 0)
	default:
		w.Write(errWrongArgType)
	}
}

// writeString writes the contents of s one byte at a time.
func writeString(w io.Writer, s string) {
	var buf [1]byte
	for i := 0; i < len(s); i++ {
		buf[0] = s[i]
		w.Write(buf[:])
	}
}

// fmtRepeat writes count bytes with value ch.
func fmtRepeat(w io.Writer, ch byte, count int) {
	var buf = [1]byte{ch}
	for i := 0; i < count; i++ {
		w.Write(buf[:])
	}
}

// fmtInt prints out a formatted version of v in the requested base, applying
// the padding specified by padLen. This function supports all built-in signed
// and unsigned integer types and base 8, 10 and 16 output.
func fmtInt(w io.Writer, v interface{}, base, padLen int) {
	var (
		numFmtBuf        [maxBufSize]byte
		sval             int64
		uval             uint64
		divider          uint64
		remainder        uint64
		padCh            byte
		left, right, end int
	)

	if padLen >= maxBufSize {
		padLen = maxBufSize - 1
	}

	switch base {
	case 8:
		divider = 8
		padCh = '0'
	case 10:
		divider = 10
		padCh = ' '
	case 16:
		divider = 16
		padCh = '0'
	}

	switch numVal := v.(type) {
	case uint8:
		uval = uint64(numVal)
	case uint16:
		uval = uint64(numVal)
	case uint32:
		uval = uint64(numVal)
	case uint64:
		uval = numVal
	case uint:
		uval = uint64(numVal)
	case uintptr:
		uval = uint64(numVal)
	case int8:
		sval = int64(numVal)
	case int16:
		sval = int64(numVal)
	case int32:
		sval = int64(numVal)
	case int64:
		sval = numVal
	case int:
		sval = int64(numVal)
	default:
		w.Write(errWrongArgType)
		return
	}

	// Handle signs
	if sval < 0 {
		uval = uint64(-sval)
	} else if sval > 0 {
		uval = uint64(sval)
	}

	for right < maxBufSize {
		remainder = uval % divider
		if remainder < 10 {
			numFmtBuf[right] = byte(remainder) + '0'
		} else {
			// map values from 10 to 15 -> a-f
			numFmtBuf[right] = byte(remainder-10) + 'a'
		}

		right++

		uval /= divider
		if uval == 0 {
			break
		}
	}

	// Apply padding if required
	for ; right-left < padLen; right++ {
		numFmtBuf[right] = padCh
	}

	// Apply negative sign to the rightmost blank character (if using enough
	// padding); otherwise append the sign as a new char
	if sval < 0 {
		for end = right - 1; numFmtBuf[end] == ' '; end-- {
		}

		if end == right-1 {
			right++
		}

		numFmtBuf[end+1] = '-'
	}

	// Reverse in place
	end = right
	for right = right - 1; left < right; left, right = left+1, right-1 {
		numFmtBuf[left], numFmtBuf[right] = numFmtBuf[right], numFmtBuf[left]
	}

	w.Write(numFmtBuf[0:end])
}
