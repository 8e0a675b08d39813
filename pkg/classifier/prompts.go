package classifier

// Prompt templates for the decision classifiers. Placeholders are filled
// with fmt.Sprintf; the literal braces inside examples are part of the
// expected model output, not template syntax.

const questionValidatorPrompt = `
You are an expert at deciding whether a question is valid or not.
Verify the question not only standalone, but also in the context of the existing conversation history.

For example:
<example>
Question:Can you explain in greater detail?
Answer:{"valid_question" : true}
</example>

<example>
Question:Can you tell me more about that?
Answer:{"valid_question" : true}
</example>

<example>
Question:Can you tell me about Gravity?
Answer:{"valid_question" : false}
</example>

<example>
Question:What are the latest updates about the situation in Gaza?
Answer:{"valid_question" : false}
</example>

<example>
Question:What's 10+33?
Answer:{"valid_question" : true}
</example>

If the question is unrelated to Indian Intellectual Property Laws set the "valid_question" flag value to false.
Otherwise set it to true.
IMPORTANT: Return only a JSON object with the single boolean key "valid_question" with no preamble or explanation.
Question to validate is available in the <question> tags
<question>
%s
</question>`

const quizTopicValidatorPrompt = `
You are an expert at deciding whether the given request to generate a quiz or ask questions is valid or not.
Verify the request not only standalone, but also in the context of the existing conversation history.
Ensure that the context of the existing conversation history is related to Indian Intellectual Property Laws.
If the context is unrelated to Indian Intellectual Property Laws set the "valid_quiz_topic" flag value to false.
Otherwise set it to true.
For example:
<example>
Human Message: Hi, I am XYZ.
Human Message: What's my name?
Human Message: Can you quiz me based on our conversation?

AI Message: {"valid_quiz_topic" : false}
</example>

<example>
Human Message: Tell me about the types of patent applications as per Indian IP Laws.
Human Message: Can you quiz me based on our conversation?

AI Message: {"valid_quiz_topic" : true}
</example>

<example>
Human Message: What are the types of patent applications as per Indian IP laws?
Human Message: Can you explain each of them in detail?
Human Message: Ask me few questions based on our conversation.

AI Message: {"valid_quiz_topic" : true}
</example>

<example>
Human Message: Tell me about the types of patent applications as per Indian IP Laws.
Human Message: When were the Indian IP Laws last amended?
Human Message: Ask me few questions based on general relativity.

AI Message: {"valid_quiz_topic" : false}
</example>

IMPORTANT: Return only a JSON object with the single boolean key "valid_quiz_topic" with no preamble or explanation.
Request to validate is available in the <question> tags
<question>
%s
</question>`

const quizRouterPrompt = `You are an expert at identifying if a given question is asking us to generate a quiz.
Give a boolean value of true if the question is asking to quiz the user regarding a given topic or false if it's not.
Provide the boolean value as a JSON with a single key "generate_quiz" and no preamble or explanation.
Here is the question enclosed in <question> tags:
<question>
%s
</question>`

const questionRouterPrompt = `You are an expert at identifying whether a given question can be answered from the given documents or does it require a web search to get information.
You do not need to be stringent with the keywords in the question related to these topics.
You are supposed to answer only Indian Intellectual Property Laws related queries.
Do NOT perform web-search for questions not related to Indian Intellectual Property Laws.
ONLY perform web-search for questions which are related to Indian Intellectual Property Laws and do NOT have ANY information in the provided docs.
Search for relevant answers in the documents provided in the <docs> tag.
<docs>
%s
</docs>
Answer the questions from the provided docs as the 1st choice. If no information is available in the docs, only then, use web-search.
If web-search is required set the web_search_required field value to true.
IMPORTANT: Return only a JSON object with the single boolean key "web_search_required" with no preamble or explanation.
Question to route: %s`

const relevantDocCheckerPrompt = `You are an expert at identifying whether the question can be answered using the provided documents.
Contextualize the question not only standalone, but also in the context of the existing chat history.
Set the value of the "relevant_docs_exist" key to true if the contextualized question can be answered using the provided documents.

Otherwise set it to false.

Provide the binary Boolean flag with no preamble or explanation.
Think step by step before providing your answer.

For example:
<example>
Human Message: Tell me about the types of patent applications as per Indian IP Laws.
Human Message: Can you explain each of them in detail?

AI Message: {"relevant_docs_exist" : true}
</example>

<example>
Human Message: Tell me about the types of patent applications as per Indian IP Laws.
Human Message: When were the Indian IP Laws last amended?

AI Message: {"relevant_docs_exist" : false}
</example>

Here are the documents enclosed in the <docs> tags:
<docs>
%s
</docs>

Here is the question enclosed in <question> tags:
<question>
%s
</question>

IMPORTANT: Provide the output as a JSON object with the single boolean key "relevant_docs_exist".
Do NOT provide the output in any other format.`

const groundednessGraderPrompt = `You are a grader assessing whether an answer is grounded in / supported by a set of facts. Give a binary "yes" or "no" score to indicate whether the answer is grounded in / supported by a set of facts. Provide the binary score as a JSON with a single key "score" and no preamble or explanation.
Here are the facts:

 -------
%s
 -------

Here is the answer: %s`

const usefulnessGraderPrompt = `You are a grader assessing whether an answer is useful to resolve a question. Give a binary score "yes" or "no" to indicate whether the answer is useful to resolve a question. Provide the binary score as a JSON with a single key "score" and no preamble or explanation.
Here is the answer:

 -------
%s
 -------

Here is the question: %s`

const numQuestionsPrompt = `You are an expert at identifying how many questions need to be generated as per the given input query.
Provide the number of questions as a JSON with a single key "num_questions" with no preamble or explanation.
If you are unable to understand the number of questions to be generated, set it to %d.

Here is the input enclosed in the input tags.
<input>
%s
</input>

IMPORTANT: Provide the output as a JSON object with the single key "num_questions".
Ensure that the value is in string format.
Ensure that the key and value are sent in double quotes.`

const difficultyLevelPrompt = `You are an expert at identifying what should be the difficulty level of the questions that need to be generated as per the given input query.
Your options are.
1.EASY
2.MEDIUM -> (DEFAULT)
3.HARD
Provide the difficulty level as a JSON with a single key "difficulty_level" with no preamble or explanation.
If you are unable to explicitly understand the difficulty level of the questions to be generated, set it to "MEDIUM".
Do NOT set the difficulty level to "HARD" or "EASY", unless the question explicitly states so.

Here is the input enclosed in the input tags.
<input>
%s
</input>

IMPORTANT: Provide the output as a JSON object with the single key "difficulty_level".
Ensure that the value is in string format.
Ensure that the key and value are sent in double quotes.`
