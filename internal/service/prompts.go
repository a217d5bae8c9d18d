package service

import (
	"fmt"
	"strings"

	"github.com/studykit/engine/internal/domain"
)

// Canned answers for degraded paths. These are normal responses, not errors;
// the product speaks Vietnamese to its users.
const (
	answerNoContext = "Tôi không tìm thấy thông tin phù hợp trong tài liệu của bạn. Vui lòng thử câu hỏi khác hoặc upload thêm tài liệu."

	answerChooseDocument = "Vui lòng chọn tài liệu cần tóm tắt."

	answerEmptyDocument = "Không tìm thấy nội dung tài liệu."

	answerNoQuestionSource = "Không tìm thấy nội dung để tạo câu hỏi. Vui lòng upload tài liệu."
)

const directChatSystemInstruction = `Bạn là trợ lý học tập thông minh, giúp sinh viên học tập hiệu quả.

NHIỆM VỤ:
- Trả lời câu hỏi rõ ràng, dễ hiểu
- Giải thích chi tiết, có ví dụ minh họa
- Với bài tập: hướng dẫn từng bước, giải thích logic
- Với code: viết code đúng chuẩn, comment đầy đủ
- Trả lời bằng tiếng Việt

PHONG CÁCH:
- Thân thiện, dễ tiếp cận
- Khuyến khích tư duy phản biện
- Đưa ra tips học tập`

const ragSystemInstruction = `Bạn là trợ lý học tập thông minh. Trả lời câu hỏi dựa trên tài liệu được cung cấp.

NGUYÊN TẮC:
- Trả lời dựa CHÍNH XÁC vào nội dung tài liệu
- Trích dẫn nguồn khi trả lời (ví dụ: "Theo Tài liệu 1...")
- Nếu không tìm thấy thông tin, nói rõ "Thông tin này không có trong tài liệu"
- Giải thích rõ ràng, dễ hiểu
- Trả lời bằng tiếng Việt`

const summarizationSystemInstruction = `Bạn là trợ lý tóm tắt chuyên nghiệp.

NHIỆM VỤ:
Tóm tắt nội dung chính của tài liệu theo cấu trúc:

1. TỔNG QUAN (2-3 câu)
2. CÁC ĐIỂM CHÍNH (bullet points)
3. KẾT LUẬN (1-2 câu)

Yêu cầu:
- Ngắn gọn, súc tích
- Nắm bắt ý chính
- Dễ hiểu, rõ ràng
- Bằng tiếng Việt`

const questionGenerationSystemInstruction = `Bạn là chuyên gia tạo câu hỏi học tập.

NHIỆM VỤ:
Dựa vào kiến thức trong tài liệu được cung cấp, tạo các câu hỏi để giúp sinh viên học tập và ôn tập hiệu quả.

YÊU CẦU:
- Tạo ít nhất 5-10 câu hỏi
- Phân loại theo mức độ: DỄ / TRUNG BÌNH / KHÓ
- Câu hỏi phải liên quan trực tiếp đến nội dung tài liệu
- Đa dạng: trắc nghiệm, tự luận, phân tích, so sánh
- Mỗi câu hỏi kèm giải thích tại sao nó quan trọng

ĐỊNH DẠNG:
**Câu 1** (Dễ): [Câu hỏi]
- *Lý do*: [Tại sao câu hỏi này quan trọng]

**Câu 2** (Trung bình): [Câu hỏi]
- *Lý do*: [Tại sao câu hỏi này quan trọng]`

const homeworkSystemInstruction = `Bạn là gia sư chuyên nghiệp, giúp học sinh hiểu sâu kiến thức.

NHIỆM VỤ:
Hướng dẫn học sinh giải bài tập bằng cách:

1. **PHÂN TÍCH ĐỀ BÀI**
   - Xác định yêu cầu
   - Dữ liệu đã cho
   - Điều cần tìm

2. **CÁCH TIẾP CẬN**
   - Phương pháp giải
   - Các bước cần thực hiện
   - Lý do chọn cách này

3. **LỜI GIẢI CHI TIẾT**
   - Từng bước cụ thể
   - Giải thích logic
   - Tính toán (nếu có)

4. **KẾT LUẬN**
   - Đáp án
   - Kiểm tra lại
   - Bài học rút ra

YÊU CẦU:
- Giải thích dễ hiểu
- Không bỏ qua bước nào
- Khuyến khích tư duy
- Bằng tiếng Việt`

// buildRAGPrompt numbers each context so the model can cite its sources.
func buildRAGPrompt(question string, contexts []domain.ContextChunk) string {
	var sb strings.Builder
	sb.WriteString("TÀI LIỆU:\n")
	for i, ctx := range contexts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[Tài liệu %d - %s]\n%s", i+1, ctx.FileName, ctx.Text)
	}
	fmt.Fprintf(&sb, "\n\nCÂU HỎI: %s\n\nTRẢ LỜI:", question)
	return sb.String()
}

// buildSummarizationPrompt concatenates the chunks in reading order.
func buildSummarizationPrompt(contexts []domain.ContextChunk) string {
	var sb strings.Builder
	sb.WriteString("TÀI LIỆU:\n")
	for i, ctx := range contexts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[Phần %d]\n%s", i+1, ctx.Text)
	}
	sb.WriteString("\n\nTÓM TẮT:")
	return sb.String()
}

func buildQuestionGenerationPrompt(request string, contexts []domain.ContextChunk) string {
	var sb strings.Builder
	sb.WriteString("KIẾN THỨC TỪ TÀI LIỆU:\n")
	for i, ctx := range contexts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(ctx.Text)
	}
	fmt.Fprintf(&sb, "\n\nYÊU CẦU: %s\n\nCÁC CÂU HỎI:", request)
	return sb.String()
}

func buildHomeworkPrompt(question string) string {
	return fmt.Sprintf("BÀI TẬP:\n%s\n\nHƯỚNG DẪN:", question)
}
