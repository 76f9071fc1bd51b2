package notification

import "fmt"

// WaitMessage is the text sent when a patient has ahead people in front.
func WaitMessage(clinic, patient string, ahead int) string {
	return fmt.Sprintf("[%s 대기 알림]\n%s님, 앞 대기자가 %d명 남았습니다.\n병원 내에서 대기해주세요.", clinic, patient, ahead)
}

// CallMessage is the text sent when the patient is called in.
func CallMessage(clinic, patient string) string {
	return fmt.Sprintf("[%s 호출 알림]\n%s님, 진료실로 입장해 주세요!", clinic, patient)
}
