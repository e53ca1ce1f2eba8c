package dream

import "strings"

type Mood string

const (
	MoodPeaceful   Mood = "peaceful"
	MoodMysterious Mood = "mysterious"
	MoodIntense    Mood = "intense"
	MoodJoyful     Mood = "joyful"
	MoodDark       Mood = "dark"
	MoodNostalgic  Mood = "nostalgic"
	MoodAnxious    Mood = "anxious"
	MoodRomantic   Mood = "romantic"
)

type Category string

const (
	CategoryFlying         Category = "flying"
	CategoryNightmare      Category = "nightmare"
	CategoryWater          Category = "water"
	CategoryChase          Category = "chase"
	CategoryFalling        Category = "falling"
	CategoryLucid          Category = "lucid"
	CategoryProphetic      Category = "prophetic"
	CategoryRecurring      Category = "recurring"
	CategoryAdventure      Category = "adventure"
	CategoryTransformation Category = "transformation"
	CategoryLost           Category = "lost"
	CategoryAnimals        Category = "animals"
	CategoryDeath          Category = "death"
	CategoryFamily         Category = "family"
	CategoryWork           Category = "work"
	CategorySchool         Category = "school"
	CategoryChildhood      Category = "childhood"
	CategoryTravel         Category = "travel"
	CategoryNature         Category = "nature"
	CategorySpiritual      Category = "spiritual"
	CategoryAbstract       Category = "abstract"
)

const (
	FallbackMood     = MoodMysterious
	FallbackCategory = CategoryAbstract
)

type moodKeywords struct {
	Mood     Mood
	Keywords []string
}

type categoryKeywords struct {
	Category Category
	Keywords []string
}

// moodTable is ordered: on equal scores the earlier mood wins.
var moodTable = []moodKeywords{
	{MoodPeaceful, []string{"peace", "calm", "serene", "tranquil", "gentle", "quiet", "still", "float", "soft", "relax", "meadow", "breeze"}},
	{MoodMysterious, []string{"mystery", "mysterious", "strange", "unknown", "secret", "fog", "mist", "shadow", "door", "key", "hidden", "puzzle"}},
	{MoodIntense, []string{"intense", "storm", "fire", "explod", "rush", "fight", "battle", "scream", "thunder", "racing", "crash", "urgent"}},
	{MoodJoyful, []string{"happy", "joy", "laugh", "smil", "celebrat", "fun", "bright", "dance", "sing", "delight", "warm light", "glow"}},
	{MoodDark, []string{"dark", "blood", "monster", "demon", "evil", "grave", "death", "dead", "horror", "terror", "nightmare", "kill"}},
	{MoodNostalgic, []string{"childhood", "memory", "memories", "old house", "grandm", "grandp", "used to", "remember", "photograph", "past", "school", "hometown"}},
	{MoodAnxious, []string{"anxious", "worry", "worried", "late", "exam", "test", "panic", "lost", "trapped", "stuck", "can't find", "naked"}},
	{MoodRomantic, []string{"love", "kiss", "romance", "romantic", "heart", "embrace", "wedding", "partner", "crush", "date", "beloved", "hold hands"}},
}

// categoryTable is ordered: on equal scores the earlier category wins.
// Abstract carries no keywords; it is only the fallback.
var categoryTable = []categoryKeywords{
	{CategoryFlying, []string{"fly", "flying", "flew", "soar", "wings", "float", "sky", "clouds", "hover", "glide"}},
	{CategoryNightmare, []string{"nightmare", "monster", "demon", "terrif", "horror", "scream", "evil", "ghost"}},
	{CategoryWater, []string{"water", "ocean", "sea", "swim", "river", "lake", "rain", "wave", "drown", "jellyfish", "underwater"}},
	{CategoryChase, []string{"chase", "chasing", "chased", "run away", "running from", "pursu", "hunted", "escape"}},
	{CategoryFalling, []string{"fall", "falling", "fell", "drop", "plummet", "cliff", "edge"}},
	{CategoryLucid, []string{"lucid", "aware i was dreaming", "knew i was dreaming", "control the dream", "realized it was a dream"}},
	{CategoryProphetic, []string{"prophe", "future", "vision", "omen", "premonition", "foresee", "sign"}},
	{CategoryRecurring, []string{"recurring", "again and again", "same dream", "keeps happening", "every night", "repeat"}},
	{CategoryAdventure, []string{"adventure", "quest", "explore", "journey", "treasure", "map", "discover"}},
	{CategoryTransformation, []string{"transform", "turned into", "became", "morph", "shapeshift", "metamorph", "changing into"}},
	{CategoryLost, []string{"lost", "can't find", "searching", "maze", "wander", "missing", "labyrinth"}},
	{CategoryAnimals, []string{"animal", "dog", "cat", "bird", "fox", "wolf", "snake", "horse", "lion", "tiger", "bear", "fish"}},
	{CategoryDeath, []string{"death", "dying", "died", "dead", "funeral", "grave", "coffin", "kill"}},
	{CategoryFamily, []string{"mother", "father", "mom", "dad", "sister", "brother", "family", "grandm", "grandp", "parent"}},
	{CategoryWork, []string{"work", "office", "boss", "job", "meeting", "coworker", "deadline"}},
	{CategorySchool, []string{"school", "class", "teacher", "exam", "test", "homework", "classroom", "university"}},
	{CategoryChildhood, []string{"childhood", "child", "kid", "young", "toy", "playground", "old house", "memory"}},
	{CategoryTravel, []string{"travel", "train", "plane", "airport", "car", "bus", "road", "trip", "station", "city"}},
	{CategoryNature, []string{"forest", "tree", "mountain", "flower", "garden", "meadow", "field", "moon", "star", "sun"}},
	{CategorySpiritual, []string{"spirit", "god", "angel", "soul", "heaven", "divine", "temple", "pray", "light being"}},
	{CategoryAbstract, nil},
}

// Moods returns the closed set of moods in table order.
func Moods() []Mood {
	out := make([]Mood, len(moodTable))
	for i, row := range moodTable {
		out[i] = row.Mood
	}
	return out
}

// Categories returns the closed set of categories in table order.
func Categories() []Category {
	out := make([]Category, len(categoryTable))
	for i, row := range categoryTable {
		out[i] = row.Category
	}
	return out
}

func (m Mood) Valid() bool {
	for _, row := range moodTable {
		if row.Mood == m {
			return true
		}
	}
	return false
}

func (c Category) Valid() bool {
	for _, row := range categoryTable {
		if row.Category == c {
			return true
		}
	}
	return false
}

// ClassifyMood scores every mood by how many of its keywords appear in the
// text and returns the best one, or FallbackMood when nothing matches.
func ClassifyMood(text string) Mood {
	normalized := strings.ToLower(text)
	best, highest := FallbackMood, 0
	for _, row := range moodTable {
		if score := keywordScore(normalized, row.Keywords); score > highest {
			best, highest = row.Mood, score
		}
	}
	return best
}

// ClassifyCategory is the category counterpart of ClassifyMood.
func ClassifyCategory(text string) Category {
	normalized := strings.ToLower(text)
	best, highest := FallbackCategory, 0
	for _, row := range categoryTable {
		if score := keywordScore(normalized, row.Keywords); score > highest {
			best, highest = row.Category, score
		}
	}
	return best
}

// keywordScore counts distinct keywords present as substrings. Repeats of
// the same keyword count once; no word boundaries are checked.
func keywordScore(normalizedText string, keywords []string) int {
	if normalizedText == "" {
		return 0
	}
	score := 0
	for _, kw := range keywords {
		if strings.Contains(normalizedText, kw) {
			score++
		}
	}
	return score
}
