// Package catalog holds the built-in challenge templates seeded into an empty
// store on first boot. Templates carry no ids; the store assigns them.
package catalog

import "mathe-challenge-service/internal/domain"

// Challenges returns the seed templates in their canonical order. Each call
// returns a fresh slice so callers can mutate their copy freely.
func Challenges() []domain.Challenge {
	return []domain.Challenge{
		{
			Title:       "Math Mastery Challenge",
			Description: "Test your skills across arithmetic, fractions and percentages.",
			TimeLimit:   600,
			TotalPoints: 50,
			Questions: []domain.Question{
				{
					ID:            "mm-q1",
					Question:      "What is 144 divided by 12?",
					Options:       []string{"10", "11", "12", "14"},
					CorrectAnswer: "12",
					Explanation:   "12 times 12 is 144, so 144 / 12 = 12.",
					Difficulty:    domain.DifficultyEasy,
					Points:        10,
				},
				{
					ID:            "mm-q2",
					Question:      "What is 3/4 expressed as a percentage?",
					Options:       []string{"34%", "50%", "70%", "75%"},
					CorrectAnswer: "75%",
					Explanation:   "3 divided by 4 is 0.75, which is 75%.",
					Difficulty:    domain.DifficultyEasy,
					Points:        10,
				},
				{
					ID:            "mm-q3",
					Question:      "If a shirt costs $40 after a 20% discount, what was the original price?",
					Options:       []string{"$44", "$48", "$50", "$60"},
					CorrectAnswer: "$50",
					Explanation:   "The sale price is 80% of the original, and 40 / 0.8 = 50.",
					Difficulty:    domain.DifficultyMedium,
					Points:        10,
				},
				{
					ID:            "mm-q4",
					Question:      "What is the least common multiple of 6 and 8?",
					Options:       []string{"12", "24", "36", "48"},
					CorrectAnswer: "24",
					Explanation:   "Multiples of 8 are 8, 16, 24; 24 is the first that 6 also divides.",
					Difficulty:    domain.DifficultyMedium,
					Points:        10,
				},
				{
					ID:            "mm-q5",
					Question:      "A train travels 180 km in 2.5 hours. What is its average speed?",
					Options:       []string{"60 km/h", "68 km/h", "72 km/h", "75 km/h"},
					CorrectAnswer: "72 km/h",
					Explanation:   "Speed is distance over time: 180 / 2.5 = 72.",
					Difficulty:    domain.DifficultyHard,
					Points:        10,
				},
			},
		},
		{
			Title:       "Algebra Sprint",
			Description: "Solve equations and simplify expressions against the clock.",
			TimeLimit:   480,
			TotalPoints: 32,
			Questions: []domain.Question{
				{
					ID:            "al-q1",
					Question:      "Solve for x: x + 7 = 15",
					Options:       []string{"6", "7", "8", "9"},
					CorrectAnswer: "8",
					Explanation:   "Subtract 7 from both sides: x = 15 - 7 = 8.",
					Difficulty:    domain.DifficultyEasy,
					Points:        8,
				},
				{
					ID:            "al-q2",
					Question:      "Solve for x: 3x - 4 = 11",
					Options:       []string{"3", "5", "7", "15"},
					CorrectAnswer: "5",
					Explanation:   "Add 4 to get 3x = 15, then divide by 3.",
					Difficulty:    domain.DifficultyMedium,
					Points:        8,
				},
				{
					ID:            "al-q3",
					Question:      "Simplify: 2(x + 3) - x",
					Options:       []string{"x + 3", "x + 6", "2x + 6", "3x + 6"},
					CorrectAnswer: "x + 6",
					Explanation:   "Distribute to 2x + 6, then subtract x.",
					Difficulty:    domain.DifficultyMedium,
					Points:        8,
				},
				{
					ID:            "al-q4",
					Question:      "If f(x) = 2x² - 3, what is f(3)?",
					Options:       []string{"9", "12", "15", "18"},
					CorrectAnswer: "15",
					Explanation:   "2 · 3² - 3 = 18 - 3 = 15.",
					Difficulty:    domain.DifficultyHard,
					Points:        8,
				},
			},
		},
		{
			Title:       "Geometry Explorer",
			Description: "Angles, areas and shapes from the everyday world.",
			TimeLimit:   540,
			TotalPoints: 36,
			Questions: []domain.Question{
				{
					ID:            "ge-q1",
					Question:      "How many degrees are in the angles of a triangle?",
					Options:       []string{"90", "180", "270", "360"},
					CorrectAnswer: "180",
					Explanation:   "The interior angles of any triangle sum to 180 degrees.",
					Difficulty:    domain.DifficultyEasy,
					Points:        9,
				},
				{
					ID:            "ge-q2",
					Question:      "What is the area of a rectangle 7 cm wide and 9 cm long?",
					Options:       []string{"16 cm²", "32 cm²", "63 cm²", "81 cm²"},
					CorrectAnswer: "63 cm²",
					Explanation:   "Area is width times length: 7 × 9 = 63.",
					Difficulty:    domain.DifficultyEasy,
					Points:        9,
				},
				{
					ID:            "ge-q3",
					Question:      "A circle has radius 5. What is its circumference in terms of π?",
					Options:       []string{"5π", "10π", "25π", "50π"},
					CorrectAnswer: "10π",
					Explanation:   "Circumference is 2πr = 2 · π · 5 = 10π.",
					Difficulty:    domain.DifficultyMedium,
					Points:        9,
				},
				{
					ID:            "ge-q4",
					Question:      "A right triangle has legs 6 and 8. How long is the hypotenuse?",
					Options:       []string{"9", "10", "12", "14"},
					CorrectAnswer: "10",
					Explanation:   "By the Pythagorean theorem, √(36 + 64) = √100 = 10.",
					Difficulty:    domain.DifficultyHard,
					Points:        9,
				},
			},
		},
	}
}
