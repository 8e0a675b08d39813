package workflow

// Canned responses for terminal outcomes.
const (
	invalidQuestionResponse  = "Answer:I can only answer questions related to Indian IP Laws."
	invalidQuizTopicResponse = "Answer:I can only generate quizzes on topics related to Indian IP Laws."
	emailSentResponse        = "Email sent successfully to all recipients"
	noRecipientsResponse     = "Answer:I couldn't find an email address in our conversation to send the quiz to."
	noArtifactResponse       = "Answer:No quiz has been generated yet, so there is nothing to send."
	maxRetriesResponse       = "Answer:I couldn't verify a reliable answer to this question from my sources. Please try rephrasing or narrowing it down."

	// FarewellResponse ends a session.
	FarewellResponse = "Bye! have a great day ahead!!"
)

const answerPrompt = `You are IP Expert, an AI Intellectual Property Laws Teaching assistant. You will be interacting with the user in a friendly manner and help them answer their Intellectual Property Laws queries.
Use the following pieces of information to provide a concise answer to the question enclosed in <question> tags.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
Do NOT make up information which you are unable to find in the context enclosed in <context> tags.
If the question seems abstract and doesn't seem too specific, don't answer the question.
You are supposed to answer only Indian Intellectual Property Laws related queries. If user asks any question not related to Indian Intellectual Property Laws, just say that you can't answer questions which are unrelated to Intellectual Property Laws, don't try to make up an answer.
Use the following format:
Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be based on the information available in the context enclosed in <context> tags.
Action Input: the input to the action
Observation: the result of the action
Thought: I now know the final answer
Answer: the final answer to the original input question
    <context>
    %s
    </context>

    <question>
    %s
    </question>

The response should be friendly and well informed. Think through and provide a reasoning behind your thought.
Think through on your reasoning before providing the response.

Assistant:`

// fewShotExamples prime the answer generation with the expected register.
var fewShotExamples = []struct {
	Question string
	Answer   string
}{
	{
		Question: "What information does an applicant need to provide?",
		Answer: `An applicant is required to disclose the name, address and
nationality of the true and first inventor(s)`,
	},
	{
		Question: "Who can be an 'assignee'?",
		Answer: `"Assignee" can be a natural person or legal person such as, a
registered company, small entity, startup, research organization, an
educational institute or the Government. Assignee includes assignee of an assignee also.`,
	},
	{
		Question: "What are the types of patent applications?",
		Answer: `1) Ordinary Application
2) Convention Application
3) PCT National Phase Application.
4) Divisional Application
5) Patent of Addition`,
	},
}
