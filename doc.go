/*
Package livesynth allows to live code audio synthesis.

Concept

A patch is a text that describes a signal graph. It's compiled by the
engine, which renders fixed-size blocks of non-interleaved samples:

    ~lfo: sin 0.5 >> mul 300 >> add 600
    left: saw 110 >> lpf ~lfo
    right: saw 110.5 >> lpf ~lfo

Every chain that is not a reference becomes an output channel, in the order
of declaration.

Hot reload

The patch can be edited at any time while it's playing. Edits are submitted
to the hot reload controller and applied right before the next block is
rendered. Only the latest edit is applied, the ones that were replaced
before the render are discarded. Invalid edit never replaces the playing
graph, its diagnostics are reported and the sound continues.

Streaming

Playback backends pull samples one by one or frame by frame. Stream flattens
blocks into interleaved samples and renders a new block only when the
current one is exhausted. Number of channels can change only at the block
boundary.

Session wires all of that together:

    s, err := livesynth.New(cfg)
    w := watch.New(cfg.Patch, s)
    text, err := w.Load()
    err = s.Load(text)
    go w.Run(ctx)
    player, err := oto.New(s.Stream, cfg.Channels, cfg.BufferDuration())
    err = player.Play(ctx)
*/
package livesynth
