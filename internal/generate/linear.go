package generate

import (
	"errors"
	"fmt"

	"sigtool/internal/host"
	"sigtool/internal/image"
	"sigtool/internal/scan"
	"sigtool/internal/signature"
)

// Linear makes one pass over im. Whenever the signature built so far also
// matches at another offset, the next instruction of fn is appended until
// the collision is gone. The signature only grows, so offsets already passed
// cannot match again. A unique signature is then hardened with up to
// opts.Hardening extra instructions; failures there are only warnings.
func Linear(fn host.Function, bin host.Binary, im *image.Image, target uint64, opts Options, obs Observer) (signature.Signature, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	funcEnd := host.FunctionEnd(fn)
	self, inImage := im.Offset(target)

	sig := signature.Signature{}
	n := im.Len()
	for off := uint64(0); off+1 < n; off++ {
		if inImage && off == self {
			continue
		}
		for scan.Matches(sig, im.Data, off) {
			var err error
			sig, err = grow(sig, fn, bin, target, funcEnd)
			if errors.Is(err, ErrFuncLimitExceeded) {
				obs.Warn("hit function limit", "function", fn.Name(), "collision", fmt.Sprintf("%#x", im.Address(off)))
				obs.Alert(funcLimitAlert)
				return nil, err
			}
			if err != nil {
				return nil, fmt.Errorf("scanning: %w", err)
			}
		}
	}

	hardening := opts.hardening()
	for i := 0; i < hardening; i++ {
		var err error
		sig, err = grow(sig, fn, bin, target, funcEnd)
		if err == nil {
			continue
		}
		progress := fmt.Sprintf("%d/%d", i, hardening)
		if errors.Is(err, ErrFuncLimitExceeded) {
			obs.Warn("hit function end while hardening signature", "progress", progress)
		} else {
			obs.Warn("error hardening signature", "progress", progress, "err", err)
		}
		obs.Warn("signature is still unique, but may be more likely to collide during updates")
		break
	}
	return sig, nil
}
