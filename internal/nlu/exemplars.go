package nlu

// exemplars are the utterances the lexical recognizer ranks a turn against.
// IntentNone has none: a turn that matches nothing is none.
var exemplars = map[Intent][]string{
	IntentGreeting: {
		"hi", "hello", "hey there", "good morning", "good afternoon", "good evening",
		"hiya", "howdy", "nice to meet you",
	},
	IntentDiscussModule: {
		"modules", "my modules this semester", "courses i am taking", "subjects i study",
		"classes and exams", "module content", "favourite module", "coursework and assignments",
	},
	IntentDiscussLecturer: {
		"lecturers", "the lecturers", "my professors", "teachers and tutors",
		"lecturer teaching style", "professor lectures",
	},
	IntentDiscussCampus: {
		"campus", "the campus in ucd", "ucd", "university buildings", "facilities on campus",
		"library", "student centre", "belfield",
	},
	IntentDiscussExtracurricular: {
		"extracurricular activities", "clubs and societies", "sports", "hobbies",
		"spare time", "societies", "clubs", "activities outside class",
	},
	IntentDiscussFeeling: {
		"corona virus", "coronavirus", "covid", "covid 19", "pandemic", "lockdown",
		"how i feel", "feelings", "virus closure",
	},
	IntentEndConversation: {
		"bye", "goodbye", "end conversation", "end chat", "stop", "quit", "exit",
		"that's all", "finish", "see you later", "leave",
	},
}
