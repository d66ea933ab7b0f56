// Package attribute defines the character sheet vocabulary: canonical keys,
// their accepted aliases, default values, and which keys may be used as
// roll modifiers.
package attribute

import "strings"

// Key is the canonical storage key of a sheet value.
type Key string

const (
	Agility   Key = "agility"
	Strength  Key = "strength"
	Instinct  Key = "instinct"
	Knowledge Key = "knowledge"
	Presence  Key = "presence"
	Finesse   Key = "finesse"
	Evasion   Key = "evasion"

	HP        Key = "hp"
	HPMax     Key = "hp_max"
	Stress    Key = "stress"
	StressMax Key = "stress_max"
	Hope      Key = "hope"
	HopeMax   Key = "hope_max"
	Armor     Key = "armor"
	ArmorMax  Key = "armor_max"
	Fear      Key = "fear"
	FearMax   Key = "fear_max"
	Major     Key = "major"
	Severe    Key = "severe"
)

// DefaultHopeMax is the Hope cap used when none is stored.
const DefaultHopeMax = 6

// DefaultFearMax is the GM Fear cap used when none is stored.
const DefaultFearMax = 12

// Definition describes one sheet key.
type Definition struct {
	Key   Key
	Label string
	// Aliases are the alternative spellings accepted for Key, in display order.
	Aliases []string
	// Checkable keys may appear as roll modifiers.
	Checkable bool
	Default   int
}

var definitions = []Definition{
	{Key: Agility, Label: "敏捷", Aliases: []string{"agility", "agi", "敏", "mj"}, Checkable: true},
	{Key: Strength, Label: "力量", Aliases: []string{"strength", "str", "力", "ll"}, Checkable: true},
	{Key: Instinct, Label: "本能", Aliases: []string{"instinct", "ins", "本", "bn"}, Checkable: true},
	{Key: Knowledge, Label: "知识", Aliases: []string{"knowledge", "knw", "智", "知", "zs"}, Checkable: true},
	{Key: Presence, Label: "风度", Aliases: []string{"presence", "pre", "魅", "风", "fd"}, Checkable: true},
	{Key: Finesse, Label: "灵巧", Aliases: []string{"finesse", "fin", "巧", "灵", "lq"}, Checkable: true},
	{Key: HP, Label: "生命", Aliases: []string{"生命值", "血量", "health", "血", "命", "hp", "sm"}},
	{Key: HPMax, Label: "生命上限", Aliases: []string{"生命值上限", "hpmax", "血量上限", "maxhp", "smsx"}, Default: 6},
	{Key: Stress, Label: "压力", Aliases: []string{"stress", "压力值", "s", "yl"}},
	{Key: StressMax, Label: "压力上限", Aliases: []string{"stressmax", "压力上限值", "maxstress", "maxs", "ylsx"}, Default: 6},
	{Key: Hope, Label: "希望", Aliases: []string{"hope", "希望值", "h", "xw"}},
	{Key: HopeMax, Label: "希望上限", Aliases: []string{"hopemax", "希望上限值", "maxhope", "maxh", "xwsx"}, Default: DefaultHopeMax},
	{Key: Armor, Label: "护甲", Aliases: []string{"armor", "防御", "armour", "a", "hj"}},
	{Key: ArmorMax, Label: "护甲上限", Aliases: []string{"armormax", "防御上限", "maxarmor", "maxa", "hjsx"}},
	{Key: Fear, Label: "恐惧", Aliases: []string{"fear", "恐惧值", "f", "kj"}},
	{Key: FearMax, Label: "恐惧上限", Aliases: []string{"fearmax", "恐惧上限值", "maxfear", "maxf", "kjsx"}, Default: DefaultFearMax},
	{Key: Evasion, Label: "闪避", Aliases: []string{"evasion", "回避", "闪", "避", "e", "sb"}, Checkable: true},
	{Key: Major, Label: "阈值", Aliases: []string{"major", "majorthreshold", "重伤阈值", "重伤", "阈值一", "mjr", "zsyz"}},
	{Key: Severe, Label: "严重阈值", Aliases: []string{"severe", "severethreshold", "严重", "阈值二", "svr", "yzyz"}},
}

var (
	byName      = map[string]int{}
	byCheckable = map[string]Key{}
)

func init() {
	for i, def := range definitions {
		names := append([]string{string(def.Key), def.Label}, def.Aliases...)
		for _, name := range names {
			name = strings.ToLower(name)
			if _, exists := byName[name]; !exists {
				byName[name] = i
			}
			if def.Checkable {
				byCheckable[name] = def.Key
			}
		}
	}
}

// All returns every definition in display order.
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup resolves a key, label or alias case-insensitively.
func Lookup(name string) (Definition, bool) {
	idx, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Definition{}, false
	}
	return definitions[idx], true
}

// Resolve returns the canonical key for name, or name lowercased when it is
// not part of the vocabulary. Free-form keys are how experiences are stored.
func Resolve(name string) Key {
	if def, ok := Lookup(name); ok {
		return def.Key
	}
	return Key(strings.ToLower(strings.TrimSpace(name)))
}

// Checkable returns the canonical key when name denotes a checkable attribute.
func Checkable(name string) (Key, bool) {
	key, ok := byCheckable[strings.ToLower(name)]
	return key, ok
}

// Default returns the value a key holds before it is ever written.
func Default(key Key) int {
	if def, ok := Lookup(string(key)); ok {
		return def.Default
	}
	return 0
}

// Label returns the display label of key, or the key itself.
func Label(key Key) string {
	if def, ok := Lookup(string(key)); ok {
		return def.Label
	}
	return string(key)
}
