package ingest

// DefaultDocuments returns the bundled sample corpus: short overviews of
// AI, machine learning, RAG, vector databases, Python and web
// development.
func DefaultDocuments() []Document {
	return []Document{
		{
			ID: "ai_overview",
			Content: "Artificial Intelligence (AI) is a branch of computer science that aims to create " +
				"intelligent machines that can think and learn like humans. AI includes machine learning, " +
				"deep learning, neural networks, and natural language processing. Modern AI applications " +
				"include chatbots, recommendation systems, autonomous vehicles, and image recognition.",
			Metadata: map[string]any{"topic": "AI", "type": "overview"},
		},
		{
			ID: "machine_learning",
			Content: "Machine Learning (ML) is a subset of AI that enables computers to learn and improve " +
				"from experience without being explicitly programmed. There are three main types: " +
				"supervised learning (learning with labeled data), unsupervised learning (finding " +
				"patterns in unlabeled data), and reinforcement learning (learning through rewards " +
				"and penalties).",
			Metadata: map[string]any{"topic": "ML", "type": "educational"},
		},
		{
			ID: "rag_systems",
			Content: "Retrieval-Augmented Generation (RAG) is an AI technique that combines information " +
				"retrieval with text generation. RAG systems first retrieve relevant documents from " +
				"a knowledge base, then use this information to generate more accurate and contextual " +
				"responses. This approach helps reduce hallucinations and provides more factual answers.",
			Metadata: map[string]any{"topic": "RAG", "type": "technical"},
		},
		{
			ID: "vector_databases",
			Content: "Vector databases are specialized databases designed to store and query high-dimensional " +
				"vectors. They are essential for AI applications like similarity search, recommendation " +
				"systems, and RAG. Popular vector databases include Pinecone, Weaviate, Chroma, and " +
				"FAISS. They enable fast semantic search and similarity matching.",
			Metadata: map[string]any{"topic": "databases", "type": "technical"},
		},
		{
			ID: "python_programming",
			Content: "Python is a high-level, interpreted programming language known for its simplicity " +
				"and readability. It's widely used in AI, data science, web development, and automation. " +
				"Key features include dynamic typing, extensive libraries (NumPy, Pandas, TensorFlow), " +
				"and a strong community. Python's syntax makes it beginner-friendly while remaining " +
				"powerful for complex applications.",
			Metadata: map[string]any{"topic": "programming", "type": "overview"},
		},
		{
			ID: "web_development",
			Content: "Web development involves creating websites and web applications. It includes front-end " +
				"development (HTML, CSS, JavaScript) for user interfaces and back-end development " +
				"(Python, Node.js, databases) for server-side logic. Modern frameworks like React, " +
				"Vue.js, Flask, and Django make development more efficient and maintainable.",
			Metadata: map[string]any{"topic": "web-dev", "type": "overview"},
		},
	}
}
