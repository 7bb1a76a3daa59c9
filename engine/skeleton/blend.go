package skeleton

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
)

func (t *table) Blend(lo, hi int, clips FrameSource, players PlaybackSource) {
	slots := t.bones.All()
	hi = min(hi, len(slots))
	bindings := t.bindings.All()

	for i := max(lo, 0); i < hi; i++ {
		slot := &slots[i]
		if !slot.authority.Valid() {
			continue
		}
		b := &bindings[slot.authority]

		in := clips.Frame(players.Clip(b.Player), players.Frame(b.Player), b.ClipBone)
		if f := players.Blend(b.Player); f < 1 {
			slot.transform.SetLocal(common.BlendTransform(slot.captured, in, f))
			continue
		}
		slot.transform.SetLocal(in)
	}
}
