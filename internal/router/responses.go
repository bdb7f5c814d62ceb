package router

var Greetings = []string{
	"Hello! I'm here to help you with women's safety related questions. How can I assist you today?",
	"Hi! I'm your women's safety assistant. What can I help you with?",
	"Welcome! I'm here to provide support and information about women's safety. What would you like to know?",
}

var Declines = []string{
	"I apologize, but I'm specifically trained to help with women's safety related questions. Could you please ask something related to women's safety, personal security, or harassment prevention?",
	"I must decline to respond as this query is not related to women's safety. Please ask a question about safety, security, or support matters.",
}

var Refusals = []string{
	"I apologize, but I cannot assist with harmful or inappropriate content. This service is dedicated to providing helpful safety information and support. Please ask an appropriate question about women's safety.",
	"I must decline to respond to inappropriate content. This is a safety-focused service. Please ask questions related to women's safety and support.",
}

// NoInformationApology replaces the extraction sentinel in buffered replies.
const NoInformationApology = "I apologize, but I don't have specific information about that in my database. Please try rephrasing your question or ask about a different safety concern."
