package nuscenes

import (
	"errors"
	"fmt"
)

// ErrInvariant marks a table set that breaks a structural rule of the
// schema. It always indicates a converter bug.
var ErrInvariant = errors.New("dataset invariant violated")

// maxViolations caps how many problems Validate reports.
const maxViolations = 20

type checker struct {
	errs []error
}

func (c *checker) failf(format string, args ...any) {
	if len(c.errs) < maxViolations {
		c.errs = append(c.errs, fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...)))
	}
}

func (c *checker) err() error {
	return errors.Join(c.errs...)
}

// Validate checks token uniqueness, cross-table references, the sample,
// annotation and LiDAR chains, and the scene and instance counters.
func (t *Tables) Validate() error {
	c := &checker{}

	t.checkUniqueTokens(c)

	logs := make(map[string]bool, len(t.Log))
	for _, l := range t.Log {
		logs[l.Token] = true
	}
	for _, m := range t.Map {
		for _, lt := range m.LogTokens {
			if !logs[lt] {
				c.failf("map %s references unknown log %s", m.Token, lt)
			}
		}
	}

	scenes := make(map[string]Scene, len(t.Scene))
	for _, s := range t.Scene {
		scenes[s.Token] = s
		if !logs[s.LogToken] {
			c.failf("scene %s references unknown log %q", s.Token, s.LogToken)
		}
	}

	samples := make(map[string]Sample, len(t.Sample))
	samplesByScene := make(map[string]int)
	for _, s := range t.Sample {
		samples[s.Token] = s
		if _, ok := scenes[s.SceneToken]; !ok {
			c.failf("sample %s references unknown scene %q", s.Token, s.SceneToken)
		}
		samplesByScene[s.SceneToken]++
	}

	for _, s := range t.Scene {
		n := walkChain(c, "scene "+s.Token, s.FirstSampleToken, s.LastSampleToken, func(tok string) (prev, next string, ok bool) {
			sm, ok := samples[tok]
			if ok && sm.SceneToken != s.Token {
				c.failf("sample %s in chain of scene %s belongs to scene %s", tok, s.Token, sm.SceneToken)
			}
			return sm.Prev, sm.Next, ok
		})
		if n != s.NbrSamples {
			c.failf("scene %s: nbr_samples %d but chain has %d samples", s.Token, s.NbrSamples, n)
		}
		if n != samplesByScene[s.Token] {
			c.failf("scene %s: chain has %d samples, table has %d", s.Token, n, samplesByScene[s.Token])
		}
	}

	t.checkAnnotations(c, samples)
	t.checkSampleData(c, samples)

	return c.err()
}

func (t *Tables) checkUniqueTokens(c *checker) {
	seen := make(map[string]string)
	add := func(table, tok string) {
		if tok == "" {
			c.failf("%s row with empty token", table)
			return
		}
		if other, dup := seen[tok]; dup {
			c.failf("token %s used by %s and %s", tok, other, table)
			return
		}
		seen[tok] = table
	}
	for _, r := range t.Attribute {
		add("attribute", r.Token)
	}
	for _, r := range t.CalibratedSensor {
		add("calibrated_sensor", r.Token)
	}
	for _, r := range t.Category {
		add("category", r.Token)
	}
	for _, r := range t.EgoPose {
		add("ego_pose", r.Token)
	}
	for _, r := range t.Instance {
		add("instance", r.Token)
	}
	for _, r := range t.Log {
		add("log", r.Token)
	}
	for _, r := range t.Map {
		add("map", r.Token)
	}
	for _, r := range t.Sample {
		add("sample", r.Token)
	}
	for _, r := range t.SampleAnnotation {
		add("sample_annotation", r.Token)
	}
	for _, r := range t.SampleData {
		add("sample_data", r.Token)
	}
	for _, r := range t.Scene {
		add("scene", r.Token)
	}
	for _, r := range t.Sensor {
		add("sensor", r.Token)
	}
	for _, r := range t.Visibility {
		add("visibility", r.Token)
	}
}

func (t *Tables) checkAnnotations(c *checker, samples map[string]Sample) {
	categories := make(map[string]bool, len(t.Category))
	for _, cat := range t.Category {
		categories[cat.Token] = true
	}

	anns := make(map[string]SampleAnnotation, len(t.SampleAnnotation))
	perInstance := make(map[string]int)
	for _, a := range t.SampleAnnotation {
		anns[a.Token] = a
		if _, ok := samples[a.SampleToken]; !ok {
			c.failf("sample_annotation %s references unknown sample %q", a.Token, a.SampleToken)
		}
		perInstance[a.InstanceToken]++
	}

	instances := make(map[string]bool, len(t.Instance))
	for _, inst := range t.Instance {
		instances[inst.Token] = true
		if !categories[inst.CategoryToken] {
			c.failf("instance %s references unknown category %q", inst.Token, inst.CategoryToken)
		}

		scene := ""
		n := walkChain(c, "instance "+inst.Token, inst.FirstAnnotationToken, inst.LastAnnotationToken, func(tok string) (prev, next string, ok bool) {
			a, ok := anns[tok]
			if !ok {
				return "", "", false
			}
			if a.InstanceToken != inst.Token {
				c.failf("annotation %s in chain of instance %s belongs to %s", tok, inst.Token, a.InstanceToken)
			}
			s := samples[a.SampleToken].SceneToken
			if scene == "" {
				scene = s
			} else if s != scene {
				c.failf("instance %s spans scenes %s and %s", inst.Token, scene, s)
			}
			return a.Prev, a.Next, true
		})
		if n != inst.NbrAnnotations {
			c.failf("instance %s: nbr_annotations %d but chain has %d", inst.Token, inst.NbrAnnotations, n)
		}
		if n != perInstance[inst.Token] {
			c.failf("instance %s: chain has %d annotations, table has %d", inst.Token, n, perInstance[inst.Token])
		}
	}

	for _, a := range t.SampleAnnotation {
		if !instances[a.InstanceToken] {
			c.failf("sample_annotation %s references unknown instance %q", a.Token, a.InstanceToken)
		}
	}
}

func (t *Tables) checkSampleData(c *checker, samples map[string]Sample) {
	channels := make(map[string]string, len(t.Sensor))
	for _, s := range t.Sensor {
		channels[s.Token] = s.Channel
	}
	calibrated := make(map[string]string, len(t.CalibratedSensor))
	for _, cs := range t.CalibratedSensor {
		ch, ok := channels[cs.SensorToken]
		if !ok {
			c.failf("calibrated_sensor %s references unknown sensor %q", cs.Token, cs.SensorToken)
		}
		calibrated[cs.Token] = ch
	}
	poses := make(map[string]bool, len(t.EgoPose))
	for _, p := range t.EgoPose {
		poses[p.Token] = true
	}

	rows := make(map[string]SampleData, len(t.SampleData))
	for _, sd := range t.SampleData {
		rows[sd.Token] = sd
	}

	for _, sd := range t.SampleData {
		sample, ok := samples[sd.SampleToken]
		if !ok {
			c.failf("sample_data %s references unknown sample %q", sd.Token, sd.SampleToken)
		}
		if !poses[sd.EgoPoseToken] {
			c.failf("sample_data %s references unknown ego_pose %q", sd.Token, sd.EgoPoseToken)
		}
		ch, ok := calibrated[sd.CalibratedSensorToken]
		if !ok {
			c.failf("sample_data %s references unknown calibrated_sensor %q", sd.Token, sd.CalibratedSensorToken)
			continue
		}

		switch ch {
		case ChannelRadar:
			if sd.Prev != "" || sd.Next != "" {
				c.failf("radar sample_data %s is linked", sd.Token)
			}
		case ChannelLidar:
			for _, link := range []string{sd.Prev, sd.Next} {
				if link == "" {
					continue
				}
				other, ok := rows[link]
				if !ok {
					c.failf("sample_data %s links to unknown row %s", sd.Token, link)
					continue
				}
				if calibrated[other.CalibratedSensorToken] != ChannelLidar {
					c.failf("lidar sample_data %s links to non-lidar row %s", sd.Token, link)
				}
				if samples[other.SampleToken].SceneToken != sample.SceneToken {
					c.failf("lidar sample_data %s links across scenes to %s", sd.Token, link)
				}
			}
			if sd.Next != "" && rows[sd.Next].Prev != sd.Token {
				c.failf("lidar sample_data %s next %s does not link back", sd.Token, sd.Next)
			}
		}
	}
}

// walkChain follows next pointers from first and checks that every prev
// pointer mirrors them and that the walk ends at last. It returns the
// number of rows visited.
func walkChain(c *checker, what, first, last string, get func(string) (prev, next string, ok bool)) int {
	if first == "" || last == "" {
		if first != last {
			c.failf("%s: first %q and last %q must both be set", what, first, last)
		}
		return 0
	}

	visited := make(map[string]bool)
	n := 0
	prevTok := ""
	for tok := first; tok != ""; {
		if visited[tok] {
			c.failf("%s: cycle at %s", what, tok)
			return n
		}
		visited[tok] = true

		prev, next, ok := get(tok)
		if !ok {
			c.failf("%s: chain references unknown row %s", what, tok)
			return n
		}
		if prev != prevTok {
			c.failf("%s: row %s prev is %q, want %q", what, tok, prev, prevTok)
		}
		n++
		if next == "" && tok != last {
			c.failf("%s: chain ends at %s, last is %s", what, tok, last)
		}
		prevTok = tok
		tok = next
	}
	return n
}
