package software

import "github.com/phanxgames/quadbatch"

// factor is a blend factor applied to one side of the blend equation.
type factor uint8

const (
	factorZero factor = iota
	factorOne
	factorSrcAlpha
	factorOneMinusSrcAlpha
	factorOneMinusSrcColor
	factorDstAlpha
	factorOneMinusDstAlpha
	factorDstColor
)

// blendFunc computes out = src*Src + dst*Dst per channel on premultiplied
// values, with separate factors for color and alpha.
type blendFunc struct {
	srcRGB, srcA factor
	dstRGB, dstA factor
}

// blendFuncs mirrors the GPU blend states of the ebitengine backend.
var blendFuncs = [...]blendFunc{
	quadbatch.BlendNormal:   {factorOne, factorOne, factorOneMinusSrcAlpha, factorOneMinusSrcAlpha},
	quadbatch.BlendAdd:      {factorOne, factorOne, factorOne, factorOne},
	quadbatch.BlendMultiply: {factorDstColor, factorDstAlpha, factorOneMinusSrcAlpha, factorOneMinusSrcAlpha},
	quadbatch.BlendScreen:   {factorOne, factorOne, factorOneMinusSrcColor, factorOneMinusSrcAlpha},
	quadbatch.BlendErase:    {factorZero, factorZero, factorOneMinusSrcAlpha, factorOneMinusSrcAlpha},
	quadbatch.BlendMask:     {factorZero, factorZero, factorSrcAlpha, factorSrcAlpha},
	quadbatch.BlendBelow:    {factorOneMinusDstAlpha, factorOneMinusDstAlpha, factorOne, factorOne},
	quadbatch.BlendNone:     {factorOne, factorOne, factorZero, factorZero},
}

// weight returns f for channel c (0..3, alpha last) in units of 1/255.
func (f factor) weight(src, dst []byte, c int) uint32 {
	switch f {
	case factorOne:
		return 255
	case factorSrcAlpha:
		return uint32(src[3])
	case factorOneMinusSrcAlpha:
		return 255 - uint32(src[3])
	case factorOneMinusSrcColor:
		return 255 - uint32(src[c])
	case factorDstAlpha:
		return uint32(dst[3])
	case factorOneMinusDstAlpha:
		return 255 - uint32(dst[3])
	case factorDstColor:
		return uint32(dst[c])
	default:
		return 0
	}
}

// apply blends one premultiplied RGBA pixel src into dst.
func (fn blendFunc) apply(dst, src []byte) {
	var out [4]uint32
	for c := range 4 {
		fs, fd := fn.srcRGB, fn.dstRGB
		if c == 3 {
			fs, fd = fn.srcA, fn.dstA
		}
		v := (uint32(src[c])*fs.weight(src, dst, c) + uint32(dst[c])*fd.weight(src, dst, c) + 127) / 255
		out[c] = min(v, 255)
	}
	for c, v := range out {
		dst[c] = uint8(v)
	}
}
