package ingest

// SampleSource names the bundled sample textbook.
const SampleSource = "Sample English Textbook"

// SampleTextbook returns the sections of a short 6th-standard English
// textbook: two chapters with their vocabulary and a grammar page.
func SampleTextbook() []string {
	return []string{
		`Chapter 1: The Giving Tree
A young boy loved a tree very much. Every day he would come to play
under the tree. The tree gave him shade when it was hot, apples to eat
when he was hungry, and branches to swing on when he wanted to play.

As the boy grew older, he needed more things. The tree gave him apples
to sell, branches to build a house, and finally its trunk to make a boat.
The story teaches us about unconditional love, generosity, and sacrifice.`,

		`Chapter 1: New Words (Vocabulary)
- Shade: A dark area created when something blocks the sunlight
- Branch: A part of a tree that grows out from the trunk
- Trunk: The main thick stem of a tree
- Generous: Ready to give more than what is expected
- Sacrifice: Giving up something valuable for others
- Unconditional: Without any conditions or limits`,

		`Chapter 2: The Friendly Mongoose
A farmer had a pet mongoose. One day, the farmer and his wife went to
the market, leaving their baby at home with the mongoose.

When a snake entered the house and tried to harm the baby, the brave
mongoose fought the snake and killed it. When the farmer's wife returned,
she saw blood on the mongoose and thought it had hurt the baby.

Without thinking, she killed the mongoose. Then she saw the dead snake
and realized her terrible mistake. The story teaches us to think before
we act and not to jump to conclusions.`,

		`Chapter 2: New Words (Vocabulary)
- Mongoose: A small animal that can kill snakes
- Brave: Ready to face danger
- Conclusion: A judgment or decision reached after thinking
- Terrible: Very bad or serious
- Mistake: Something done wrongly`,

		`Grammar: Parts of Speech
Nouns: Names of people, places, things, or ideas
Examples: boy, tree, happiness, India

Verbs: Action words
Examples: run, jump, think, give

Adjectives: Words that describe nouns
Examples: big, beautiful, kind, green

Pronouns: Words used instead of nouns
Examples: he, she, it, they, we`,
	}
}
