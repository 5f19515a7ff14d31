package ebitengine

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/quadbatch"
)

// factors builds an additive ebiten.Blend from its four factors.
func factors(srcRGB, srcA, dstRGB, dstA ebiten.BlendFactor) ebiten.Blend {
	return ebiten.Blend{
		BlendFactorSourceRGB:        srcRGB,
		BlendFactorSourceAlpha:      srcA,
		BlendFactorDestinationRGB:   dstRGB,
		BlendFactorDestinationAlpha: dstA,
		BlendOperationRGB:           ebiten.BlendOperationAdd,
		BlendOperationAlpha:         ebiten.BlendOperationAdd,
	}
}

// blends is indexed by quadbatch.BlendMode. Ebitengine works on premultiplied
// colors, so every entry assumes premultiplied source and destination.
var blends = [...]ebiten.Blend{
	quadbatch.BlendNormal: ebiten.BlendSourceOver,
	quadbatch.BlendAdd:    ebiten.BlendLighter,
	quadbatch.BlendMultiply: factors(
		ebiten.BlendFactorDestinationColor, ebiten.BlendFactorDestinationAlpha,
		ebiten.BlendFactorOneMinusSourceAlpha, ebiten.BlendFactorOneMinusSourceAlpha),
	quadbatch.BlendScreen: factors(
		ebiten.BlendFactorOne, ebiten.BlendFactorOne,
		ebiten.BlendFactorOneMinusSourceColor, ebiten.BlendFactorOneMinusSourceAlpha),
	quadbatch.BlendErase: ebiten.BlendDestinationOut,
	quadbatch.BlendMask: factors(
		ebiten.BlendFactorZero, ebiten.BlendFactorZero,
		ebiten.BlendFactorSourceAlpha, ebiten.BlendFactorSourceAlpha),
	quadbatch.BlendBelow: ebiten.BlendDestinationOver,
	quadbatch.BlendNone:  ebiten.BlendCopy,
}

// blend maps a draw state's blend mode; unknown modes draw source-over.
func blend(mode quadbatch.BlendMode) ebiten.Blend {
	if int(mode) < len(blends) {
		return blends[mode]
	}
	return ebiten.BlendSourceOver
}
